package models

// Ciphertext an opaque encoded ciphertext produced by the encryption layer.
//
// The store never decodes or interprets it.
type Ciphertext string

// RecordPayload the set of encrypted fields of a health record
type RecordPayload struct {
	Complaint   Ciphertext `json:"complaint"`
	Diagnosis   Ciphertext `json:"diagnosis"`
	Medications Ciphertext `json:"medications"`
	Allergy     Ciphertext `json:"allergy"`
	Note        Ciphertext `json:"note,omitempty"`
}

// PlainPayload the plain text form of RecordPayload, only seen outside the store
type PlainPayload struct {
	Complaint   string  `json:"complaint"`
	Diagnosis   string  `json:"diagnosis"`
	Medications string  `json:"medications"`
	Allergy     string  `json:"allergy"`
	Note        *string `json:"note,omitempty"`
}
