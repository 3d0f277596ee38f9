// Command certgen writes a self-signed certificate and key for the paths
// configured as server.tls_cert and server.tls_key.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type options struct {
	certFile string
	keyFile  string
	hosts    []string
	validFor time.Duration
	force    bool
}

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("certgen failed")
		os.Exit(1)
	}
}

func run() error {
	var (
		opts  options
		hosts string
		days  int
	)
	flag.StringVar(&opts.certFile, "cert", "cert.pem", "certificate output path")
	flag.StringVar(&opts.keyFile, "key", "key.pem", "private key output path")
	flag.StringVar(&hosts, "hosts", "localhost,127.0.0.1,::1", "comma separated DNS names and IPs")
	flag.IntVar(&days, "days", 365, "validity in days")
	flag.BoolVar(&opts.force, "force", false, "overwrite existing files")
	flag.Parse()

	opts.hosts = strings.Split(hosts, ",")
	opts.validFor = time.Duration(days) * 24 * time.Hour

	if !opts.force && exists(opts.certFile, opts.keyFile) {
		return errors.New("cert or key already exists, use -force to overwrite")
	}
	certPEM, keyPEM, err := generate(opts.hosts, time.Now(), opts.validFor)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.certFile, certPEM, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(opts.keyFile, keyPEM, 0o600); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"cert":  opts.certFile,
		"key":   opts.keyFile,
		"hosts": opts.hosts,
	}).Info("certificate written")
	return nil
}

func generate(hosts []string, notBefore time.Time, validFor time.Duration) ([]byte, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"accountserver"},
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func exists(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}
