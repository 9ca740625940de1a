package transcription

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Prompt   string
}
