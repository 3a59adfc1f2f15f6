package models

import "time"

// OrphanedPrincipal records an auth account whose user document could not be
// created and whose deletion also failed. The reconciler retries the deletion.
type OrphanedPrincipal struct {
	UID       string    `json:"uid" firestore:"uid"`
	Email     string    `json:"email" firestore:"email"`
	Reason    string    `json:"reason" firestore:"reason"`
	Attempts  int       `json:"attempts" firestore:"attempts"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

func OrphanedPrincipalFromDocument(doc map[string]interface{}) *OrphanedPrincipal {
	if doc == nil {
		return nil
	}
	o := &OrphanedPrincipal{
		UID:       stringField(doc, "uid"),
		Email:     stringField(doc, "email"),
		Reason:    stringField(doc, "reason"),
		Attempts:  int(int64Field(doc, "attempts")),
		CreatedAt: timeField(doc, "createdAt"),
	}
	if o.UID == "" {
		o.UID = stringField(doc, "id")
	}
	return o
}
