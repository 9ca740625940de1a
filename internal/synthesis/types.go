package synthesis

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Speed   float64
}

// The pcm response format is 24kHz 16-bit little-endian mono.
const PCMSampleRate = 24000
