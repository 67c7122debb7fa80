package arp

import (
	"bytes"
	"fmt"
	"image"

	"golang.org/x/image/bmp"
)

// NormalizeIcon decodes a captured legacy BMP icon resource and
// re-encodes it, validating that the bytes are a well-formed bitmap
// before they're accepted into an InstallerMetadata.Icons entry (§4.4:
// icon normalization guards against a corrupt or truncated capture
// silently poisoning the accumulated record).
func NormalizeIcon(raw []byte) (image.Image, error) {
	img, err := bmp.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("arp: decoding icon bitmap: %w", err)
	}
	return img, nil
}

// EncodeIconBMP re-encodes img back to BMP bytes, the canonical form
// icons are stored in once normalized.
func EncodeIconBMP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("arp: encoding icon bitmap: %w", err)
	}
	return buf.Bytes(), nil
}
