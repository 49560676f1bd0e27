package credential

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jsamuelsen/idaas-m2m-client/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlibabaCloudEcsAttestedDocumentProvider_Success(t *testing.T) {
	var sawToken atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/latest/api/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		_, _ = w.Write([]byte("session-token-abc"))
	})
	mux.HandleFunc("/latest/dynamic/instance-identity/pkcs7", func(w http.ResponseWriter, r *http.Request) {
		sawToken.Store(r.Header.Get(alibabaTokenHeader))
		_, _ = w.Write([]byte("pkcs7-document-bytes"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	p := newTestAlibabaProvider(t, server)

	doc, err := p.GetPkcs7Document(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "pkcs7-document-bytes", doc)
	assert.Equal(t, "session-token-abc", sawToken.Load())
}

func TestAlibabaCloudEcsAttestedDocumentProvider_RetriesOnceOn401(t *testing.T) {
	var tokenCalls, docCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/latest/api/token", func(w http.ResponseWriter, r *http.Request) {
		n := tokenCalls.Add(1)
		_, _ = w.Write([]byte("token-" + string(rune('0'+n))))
	})
	mux.HandleFunc("/latest/dynamic/instance-identity/pkcs7", func(w http.ResponseWriter, r *http.Request) {
		n := docCalls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		_, _ = w.Write([]byte("document-after-retry"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	p := newTestAlibabaProvider(t, server)

	doc, err := p.GetPkcs7Document(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "document-after-retry", doc)
	assert.Equal(t, int32(2), tokenCalls.Load())
	assert.Equal(t, int32(2), docCalls.Load())
}

func TestAlibabaCloudEcsAttestedDocumentProvider_FailsAfterSecond401(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest/api/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("token"))
	})
	mux.HandleFunc("/latest/dynamic/instance-identity/pkcs7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	p := newTestAlibabaProvider(t, server)

	_, err := p.GetPkcs7Document(t.Context())
	require.Error(t, err)
}

func newTestAlibabaProvider(t *testing.T, server *httptest.Server) *AlibabaCloudEcsAttestedDocumentProvider {
	t.Helper()

	p := NewAlibabaCloudEcsAttestedDocumentProvider(server.Client(), cache.NewOneCallerBlocksPrefetchStrategy())
	p.tokenURL = server.URL + "/latest/api/token"
	p.documentURL = server.URL + "/latest/dynamic/instance-identity/pkcs7"

	return p
}
