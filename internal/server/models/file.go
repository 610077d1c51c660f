package models

import "time"

// StoredFile is the metadata record for one uploaded file. Filename is
// unique per user; a record exists iff the backing bytes are present in the
// blob store (kept in sync by the storage service).
type StoredFile struct {
	ID               string
	UserID           string
	Filename         string
	OriginalFilename string
	Size             int64
	ContentType      string
	CreatedAt        time.Time
}
