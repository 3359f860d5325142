package port

// Extractor converts raw document bytes into plain text.
type Extractor interface {
	Extract(name string, data []byte) (string, error)
}
