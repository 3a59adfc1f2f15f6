package models

import "time"

// RequestStatus is the lifecycle state of a request.
type RequestStatus string

const (
	StatusPending          RequestStatus = "pending"
	StatusOngoing          RequestStatus = "ongoing"
	StatusAwaitingApproval RequestStatus = "awaitingForApproval"
	StatusFinished         RequestStatus = "finished"
)

// legacyAwaitingApproval is the spelling used by some older documents.
const legacyAwaitingApproval = "waitingForApproval"

// ParseRequestStatus accepts the canonical names and the legacy
// waitingForApproval spelling.
func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch s {
	case string(StatusPending):
		return StatusPending, true
	case string(StatusOngoing):
		return StatusOngoing, true
	case string(StatusAwaitingApproval), legacyAwaitingApproval:
		return StatusAwaitingApproval, true
	case string(StatusFinished):
		return StatusFinished, true
	}
	return "", false
}

// Request represents an entry of the Open-Requests collection.
type Request struct {
	ID                  string        `json:"id" firestore:"-"`
	Title               string        `json:"title" firestore:"title"`
	UID                 string        `json:"uid" firestore:"uid"` // requester, never changes
	CurrentCoordinates  string        `json:"currentCoordinates" firestore:"currentCoordinates"` // "lat,lon"
	CurrentAddress      string        `json:"currentAddress" firestore:"currentAddress"`
	DestinationLocation string        `json:"DestinationLoaction" firestore:"DestinationLoaction"`
	PhoneNumber         string        `json:"phoneNumber" firestore:"phoneNumber"`
	AdditionalNotes     string        `json:"additionalNotes" firestore:"additionalNotes"`
	Status              RequestStatus `json:"status" firestore:"status"`
	TakenBy             *string       `json:"takenBy" firestore:"takenBy"`
	Timestamp           time.Time     `json:"timestamp" firestore:"timestamp"`
	CreatedAt           time.Time     `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt           time.Time     `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// RequestFromDocument decodes an Open-Requests document into the fixed field
// set. Documents written before the status field existed carry a boolean
// caught flag instead: caught=false maps to pending, caught=true to ongoing.
func RequestFromDocument(doc map[string]interface{}) *Request {
	if doc == nil {
		return nil
	}
	r := &Request{
		ID:                  stringField(doc, "id"),
		Title:               stringField(doc, "title"),
		UID:                 stringField(doc, "uid"),
		CurrentCoordinates:  stringField(doc, "currentCoordinates"),
		CurrentAddress:      stringField(doc, "currentAddress"),
		DestinationLocation: stringField(doc, "DestinationLoaction"),
		PhoneNumber:         stringField(doc, "phoneNumber"),
		AdditionalNotes:     stringField(doc, "additionalNotes"),
		TakenBy:             optionalStringField(doc, "takenBy"),
		Timestamp:           timeField(doc, "timestamp"),
		CreatedAt:           timeField(doc, "createdAt"),
		UpdatedAt:           timeField(doc, "updatedAt"),
	}

	if status, ok := ParseRequestStatus(stringField(doc, "status")); ok {
		r.Status = status
	} else if caught, present := boolField(doc, "caught"); present && caught {
		r.Status = StatusOngoing
	} else {
		r.Status = StatusPending
	}
	return r
}

// ToMap returns the document fields written when the request is created.
func (r *Request) ToMap() map[string]interface{} {
	var takenBy interface{}
	if r.TakenBy != nil {
		takenBy = *r.TakenBy
	}
	return map[string]interface{}{
		"title":               r.Title,
		"uid":                 r.UID,
		"currentCoordinates":  r.CurrentCoordinates,
		"currentAddress":      r.CurrentAddress,
		"DestinationLoaction": r.DestinationLocation,
		"phoneNumber":         r.PhoneNumber,
		"additionalNotes":     r.AdditionalNotes,
		"status":              string(r.Status),
		"takenBy":             takenBy,
		"timestamp":           r.Timestamp,
	}
}

// IsTakenBy reports whether uid is the current taker.
func (r *Request) IsTakenBy(uid string) bool {
	return r.TakenBy != nil && *r.TakenBy == uid && uid != ""
}

// ActiveRequest is a requester's own request together with the taker's
// public profile, when there is one.
type ActiveRequest struct {
	Request
	Taker *PublicProfile `json:"taker,omitempty"`
}
