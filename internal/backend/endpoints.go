package backend

// TestSkool REST endpoints, relative to the API base URL.
const (
	// GET
	EndpointSubjectList = "/testskool/subject-list/"
	EndpointMyProfile   = "/testskool/my-profile/"

	// POST
	EndpointRegister = "/testskool/register/"
	EndpointLogin    = "/testskool/api/token/"
	EndpointRefresh  = "/testskool/api/token/refresh/"

	// PUT
	EndpointEditProfile = "/testskool/edit-profile/"
)
