package audio

import (
	"fmt"

	"github.com/baoagent/voice-gateway/internal/shared"
)

const (
	// FormatPCM16 is 16-bit little-endian mono PCM, the only wire format the
	// browser client produces.
	FormatPCM16 = "pcm16"

	sampleWidth = 2
)

// Decode turns one inbound wire frame into PCM samples. It rejects frames
// whose byte length is not a multiple of the sample width or whose format
// tag is unrecognized; the caller decides whether to drop or disconnect.
func Decode(format string, data []byte) ([]int16, error) {
	if format != "" && format != FormatPCM16 {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrMalformedFrame, format)
	}
	if len(data)%sampleWidth != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of samples", shared.ErrMalformedFrame, len(data))
	}
	return PCMBytesToInt16(data), nil
}
