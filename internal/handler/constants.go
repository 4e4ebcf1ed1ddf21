package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteSuffixEdit is the suffix for edit forms.
	RouteSuffixEdit = "/edit"
	// RouteSuffixDelete is the suffix for delete confirmation and submission.
	RouteSuffixDelete = "/delete"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteRegister is the registration route.
	RouteRegister = "/register"

	// RouteAdmin is the admin dashboard.
	RouteAdmin = "/admin"
	// RouteStudent is the student home.
	RouteStudent = "/student"
	// RouteProfile is the admin profile route.
	RouteProfile = "/profile"
	// RouteFields is the fields admin route.
	RouteFields = "/fields"
	// RouteTopics is the topics admin route.
	RouteTopics = "/topics"
	// RouteQuestions is the questions admin route.
	RouteQuestions = "/questions"

	// RouteIDEdit is the edit form route pattern.
	RouteIDEdit = RouteParamID + RouteSuffixEdit
	// RouteIDDelete is the delete route pattern.
	RouteIDDelete = RouteParamID + RouteSuffixDelete
)

const (
	redirectLogin          = RouteLogin
	redirectAdminFields    = RouteAdmin + RouteFields
	redirectAdminTopics    = RouteAdmin + RouteTopics
	redirectAdminQuestions = RouteAdmin + RouteQuestions
)

// HeaderContentType is the Content-Type HTTP header name.
const HeaderContentType = "Content-Type"

// Flash message types.
const (
	flashTypeSuccess = "success"
	flashTypeError   = "error"
	flashTypeWarning = "warning"
	flashTypeInfo    = "info"
)
