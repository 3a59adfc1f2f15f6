package models

// SignUpRequest represents the request body for email/password sign-up.
type SignUpRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Agree           bool   `json:"agree"`
}

// LoginRequest represents the request body for email/password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FederatedLoginRequest carries a credential obtained by the client from Google
// (an ID token) or Facebook (an access token).
type FederatedLoginRequest struct {
	Provider   string `json:"provider" binding:"required"` // "google.com" or "facebook.com"
	Credential string `json:"credential" binding:"required"`
}

// CreateRequestRequest represents the request body for posting a new request.
type CreateRequestRequest struct {
	Title               string `json:"title" binding:"required"`
	CurrentCoordinates  string `json:"currentCoordinates"`
	CurrentAddress      string `json:"currentAddress"`
	DestinationLocation string `json:"DestinationLoaction"`
	PhoneNumber         string `json:"phoneNumber"`
	AdditionalNotes     string `json:"additionalNotes"`
}

// ChangeStatusRequest moves a request from Expected to Next.
type ChangeStatusRequest struct {
	Expected RequestStatus `json:"expected" binding:"required"`
	Next     RequestStatus `json:"next" binding:"required"`
}

// SetCaughtRequest represents the request body for the legacy caught toggle.
// Caught is a pointer so that an explicit false is distinguishable from a missing field.
type SetCaughtRequest struct {
	Caught *bool `json:"caught" binding:"required"`
}

// TransferCoinsRequest moves coins from the caller to another user.
type TransferCoinsRequest struct {
	ToUID  string `json:"toUid" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// ProfileImageRequest carries a base64 encoded image.
type ProfileImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// PushTokenRequest registers the caller's device token for push notifications.
type PushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// PurchaseRequest is a simulated card payment for coins.
type PurchaseRequest struct {
	Amount     int64  `json:"amount"`
	CardNumber string `json:"cardNumber"`
	CVV        string `json:"cvv"`
	Expiration string `json:"expiration"` // MM/YY
	IDNumber   string `json:"idNumber"`
}

// SubscribeRequest carries the subscription code.
type SubscribeRequest struct {
	Code string `json:"code" binding:"required"`
}
