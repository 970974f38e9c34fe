package qr

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/mdp/qrterminal"
	qrCode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// DataURL renders a pairing code as a PNG data URL the panel can put in <img>.
func DataURL(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", errors.New("empty qr code")
	}
	png, err := qrCode.Encode(code, qrCode.Medium, 256)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// IsDataURL reports whether s already holds an image payload.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}

// Terminal prints the code as half blocks on w.
func Terminal(code string, w io.Writer) {
	if code == "" || w == nil {
		return
	}
	qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
}
