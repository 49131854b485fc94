package myemsl

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// CheckCertificate verifies the auth certificate exists and has not
// expired. The archive rejects metadata queries without it, so absence
// means the pass cannot proceed yet.
func (c *Client) CheckCertificate() error {
	if c.certPath == "" {
		return ErrNoCertificate
	}

	data, err := os.ReadFile(c.certPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoCertificate, c.certPath)
		}
		return fmt.Errorf("%w: %w", ErrNoCertificate, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("%w: %s is not PEM encoded", ErrNoCertificate, c.certPath)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoCertificate, err)
	}

	if time.Now().After(cert.NotAfter) {
		return fmt.Errorf("%w: not valid after %s", ErrCertExpired, cert.NotAfter.Format(time.RFC3339))
	}

	return nil
}
