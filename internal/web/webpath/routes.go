package webpath

const (
	Auth                 = "/auth"
	AuthSignUp           = Auth + "/signup"
	AuthSignIn           = Auth + "/signin"
	AuthMe               = Auth + "/me"
	AuthConfirm          = Auth + "/confirm/:token"
	AuthSendRecoverEmail = Auth + "/send-recover-email"
	AuthResetPassword    = Auth + "/reset-password/:token"
	AuthChangePassword   = Auth + "/:id/change-password"

	Users = "/users"
	User  = Users + "/:id"
)
