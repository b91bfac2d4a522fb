package domain

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: msg,
		Status:  e.Status,
	}
}

var (
	ErrInvalidRequest = &AppError{
		Code:    "INVALID_REQUEST",
		Message: "Invalid request",
		Status:  400,
	}

	ErrInternalServerError = &AppError{
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "Internal server error",
		Status:  500,
	}

	ErrNotFound = &AppError{
		Code:    "NOT_FOUND",
		Message: "Not found",
		Status:  404,
	}

	ErrNotAuthenticated = &AppError{
		Code:    "NOT_AUTHENTICATED",
		Message: "No member session or guest token",
		Status:  401,
	}

	ErrInvalidToken = &AppError{
		Code:    "TOKEN_INVALID",
		Message: "Token is invalid",
		Status:  401,
	}

	ErrAlreadyFriends = &AppError{
		Code:    "ALREADY_FRIENDS",
		Message: "Already friends",
		Status:  409,
	}

	ErrRequestNotFound = &AppError{
		Code:    "FRIEND_REQUEST_NOT_FOUND",
		Message: "Friend request not found",
		Status:  404,
	}

	ErrGuestForbidden = &AppError{
		Code:    "GUEST_FORBIDDEN",
		Message: "Guests can only talk to the helpline",
		Status:  403,
	}
)
