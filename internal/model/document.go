package model

import "time"

// Document is the metadata record of an uploaded file.
// ID and CreatedAt are assigned by the metadata store; nothing is mutated after insert.
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Filepath  string    `json:"filepath"`
	Filesize  int64     `json:"filesize"`
	CreatedAt time.Time `json:"created_at"`
}
