package recorder

// Encoding identifies an audio capture encoding by MIME type.
type Encoding string

// Capture encodings, in negotiation preference order.
const (
	EncodingOpusWebM Encoding = "audio/webm;codecs=opus"
	EncodingWebM     Encoding = "audio/webm"
	EncodingOggOpus  Encoding = "audio/ogg;codecs=opus"
	EncodingPCMWAV   Encoding = "audio/wav"
)

// encodingPreference is the fixed negotiation order: best compression first,
// uncompressed PCM last.
var encodingPreference = []Encoding{
	EncodingOpusWebM,
	EncodingWebM,
	EncodingOggOpus,
	EncodingPCMWAV,
}

// DefaultEncoding is the fallback when the device supports nothing from the
// preference list.
const DefaultEncoding = EncodingPCMWAV

// NegotiateEncoding returns the first encoding from the preference order the
// device supports, or DefaultEncoding when none match.
func NegotiateEncoding(device CaptureDevice) Encoding {
	for _, enc := range encodingPreference {
		if device.Supports(enc) {
			return enc
		}
	}
	return DefaultEncoding
}

// FileExtension returns the filename extension used when the captured buffer
// is uploaded.
func (e Encoding) FileExtension() string {
	switch e {
	case EncodingOpusWebM, EncodingWebM:
		return "webm"
	case EncodingOggOpus:
		return "ogg"
	default:
		return "wav"
	}
}
