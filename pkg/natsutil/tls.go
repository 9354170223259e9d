/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package natsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/carverauto/robotlogger/pkg/models"
)

var (
	// ErrTLSRequired is returned when TLS settings are requested for a
	// configuration that does not enable TLS.
	ErrTLSRequired = errors.New("tls security required")
	// ErrCAParsingFailed is returned when CA certificate cannot be parsed
	ErrCAParsingFailed = errors.New("failed to parse CA certificate")
)

// TLSConfig builds a tls.Config for connecting to NATS. In mtls mode the
// client certificate is loaded as well. Paths are expected to be resolved
// already.
func TLSConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	if !sec.Enabled() {
		return nil, ErrTLSRequired
	}

	conf := &tls.Config{
		ServerName: sec.ServerName,
		MinVersion: tls.VersionTLS13,
	}

	if sec.TLS.CAFile != "" {
		caCert, err := os.ReadFile(sec.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, ErrCAParsingFailed
		}

		conf.RootCAs = caPool
	}

	if sec.Mode == models.SecurityModeMTLS {
		cert, err := tls.LoadX509KeyPair(sec.TLS.CertFile, sec.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}
