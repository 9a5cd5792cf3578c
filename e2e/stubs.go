package e2e

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
)

// Stubs run stand-ins for the verification provider and the messaging API.
// The server under test must point VERIFF_URL and INFOBIP_BASE_URL at them.
type Stubs struct {
	mu       sync.Mutex
	payloads [][]byte
	messages []map[string]any

	servers []*http.Server
}

// StartStubs listens on providerAddr and messagingAddr.
func StartStubs(providerAddr, messagingAddr string) (*Stubs, error) {
	s := &Stubs{}

	provider := http.NewServeMux()
	provider.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.payloads = append(s.payloads, body)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","verification":{"id":"e2e-session","url":"https://verify.example/v/e2e"}}`))
	})

	messaging := http.NewServeMux()
	messaging.HandleFunc("POST /whatsapp/1/message/text", func(w http.ResponseWriter, r *http.Request) {
		var msg map[string]any
		_ = json.NewDecoder(r.Body).Decode(&msg)
		s.mu.Lock()
		s.messages = append(s.messages, msg)
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"messages":[{"status":{"groupName":"PENDING"}}]}`))
	})

	for addr, h := range map[string]http.Handler{providerAddr: provider, messagingAddr: messaging} {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			s.Close()
			return nil, err
		}
		srv := &http.Server{Handler: h}
		s.servers = append(s.servers, srv)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				panic(err)
			}
		}()
	}
	return s, nil
}

func (s *Stubs) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = nil
	s.messages = nil
}

func (s *Stubs) ProviderPayloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.payloads...)
}

func (s *Stubs) Messages() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.messages...)
}

func (s *Stubs) Close() {
	for _, srv := range s.servers {
		_ = srv.Close()
	}
}
