package entity

// ProviderType identifica la variante de proveedor que emitió el resultado.
type ProviderType string

const (
	ProviderCustomJWT   ProviderType = "CUSTOM_JWT"
	ProviderGCPIdentity ProviderType = "GCP_IDENTITY"
)

// AuthResult resultado transitorio de una autenticación o registro exitoso.
type AuthResult struct {
	Token        string
	UserID       string
	Email        string
	Role         Role
	ProviderType ProviderType
}

// UserAuthInfo contexto de identidad por petición: quién llama.
type UserAuthInfo struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin informa si la identidad tiene rol ADMIN.
func (i UserAuthInfo) IsAdmin() bool { return i.Role == RoleAdmin }

// RegisterUserData datos de alta de una identidad.
type RegisterUserData struct {
	Email       string
	Password    string
	CompanyName string
	Phone       string
}
