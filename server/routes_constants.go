package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome   = "/"
	RouteHealth = "/healthz"

	// Account Routes - Registration & Email Confirmation
	RouteRegister           = "/Conta/Registrar"
	RouteConfirmEmail       = "/Conta/ConfirmacaoEmail"
	RouteResendConfirmation = "/Conta/ReenviarConfirmacao"

	// Account Routes - Login & Logout
	RouteLogin  = "/Conta/Login"
	RouteLogoff = "/Conta/Logoff"

	// Account Routes - Password Reset
	RouteForgotPassword = "/Conta/EsqueciSenha"
	RouteResetPassword  = "/Conta/ConfirmacaoAlteracaoSenha"

	// API Routes
	RouteAPIValidatePassword = "/api/validate-password"
)

// Query parameters of the mailed callback links
const (
	ParamUserID = "usuarioId"
	ParamToken  = "token"
)
