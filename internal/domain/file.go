package domain

// File is a binary upload attached to a form, such as a customer photo.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
