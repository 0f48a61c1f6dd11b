// Package models defines the client-side feed types.
package models

// AttachmentType classifies an attachment kind.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "IMAGE"
	AttachmentVideo AttachmentType = "VIDEO"
	AttachmentAudio AttachmentType = "AUDIO"
)

// Attachment references remote media attached to a post.
type Attachment struct {
	URL  string         `json:"url"`
	Type AttachmentType `json:"type"`
}

// Post is a single feed item as stored locally and exchanged with the API.
type Post struct {
	// ID is server-assigned and monotonically increasing. It is both the sort
	// key and the pagination cursor. Zero means "not yet created".
	ID int64 `json:"id"`

	AuthorID     int64  `json:"authorId"`
	Author       string `json:"author"`
	AuthorAvatar string `json:"authorAvatar"`
	Content      string `json:"content"`

	// Published is a unix timestamp in seconds.
	Published int64 `json:"published"`

	LikedByMe bool  `json:"likedByMe"`
	Likes     int64 `json:"likes"`

	Attachment *Attachment `json:"attachment,omitempty"`

	// OwnedByMe is derived per read from the active identity; it is never
	// stored and never sent.
	OwnedByMe bool `json:"-"`
}

// Media is the remote descriptor returned by an upload.
type Media struct {
	ID string `json:"id"`
}

// MediaUpload is a local file to be uploaded before a post is saved.
type MediaUpload struct {
	Path string
	// Name overrides the file name sent to the server; defaults to the base
	// name of Path.
	Name string
}
