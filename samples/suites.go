package samples

import (
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/testctx"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ModuleName         = "samples"
	ExternalModuleName = "samples-external"

	// ExternalURLVar names the environment variable that enables the external suite.
	ExternalURLVar = "TEST_ENGINE_EXTERNAL_URL"
)

var seedItems = map[string]string{
	"alpha": "one",
	"beta":  "two",
}

func init() {
	discovery.Register(Module())
	if os.Getenv(ExternalURLVar) != "" {
		discovery.Register(ExternalModule())
	}
}

// Module returns the key-value service suites.
func Module() *discovery.Module {
	return discovery.NewModule(ModuleName, discovery.RuleMarked).MustAdd(
		discovery.SuiteOf[KVServiceTests](
			discovery.WithConstructor(NewKVServiceTests),
			discovery.Pre("Reset", discovery.Order(0)),
			discovery.Pre("Seed", discovery.Order(10)),
			discovery.Post("CheckConsistent"),
			discovery.Test("GetReturnsSeededValue", discovery.InGroups("kv", "smoke")),
			discovery.Test("PutCreatesThenReplaces", discovery.InGroups("kv")),
			discovery.Test("DeleteRemovesItem", discovery.InGroups("kv")),
			discovery.Test("MissingItemIsNotFound", discovery.InGroups("kv", "smoke")),
			discovery.Test("ConditionalGetReturnsNotModified", discovery.InGroups("kv", "http")),
			discovery.Test("ListIsSorted", discovery.InGroups("kv")),
			discovery.Test("LegacyProtocol",
				discovery.InGroups("kv", "http"),
				discovery.SkipWith("the v1 protocol is no longer served")),
		),
	)
}

// ExternalModule returns the suite that checks the service named by ExternalURLVar.
func ExternalModule() *discovery.Module {
	return discovery.NewModule(ExternalModuleName, discovery.RuleMarked).MustAdd(
		discovery.SuiteOf[ExternalTests](
			discovery.Test("ReachesExternalService",
				discovery.InGroups("external"),
				discovery.Describe("sends a HEAD request to "+ExternalURLVar)),
		),
	)
}

// KVServiceTests runs a KVService on a local listener for the lifetime of the instance.
type KVServiceTests struct {
	service *KVService
	server  *httptest.Server
	client  kvClient
}

func NewKVServiceTests() (*KVServiceTests, error) {
	service := NewKVService(nil)
	server := httptest.NewServer(service)
	return &KVServiceTests{
		service: service,
		server:  server,
		client:  kvClient{baseURL: server.URL, http: server.Client()},
	}, nil
}

func (k *KVServiceTests) Close() error {
	k.server.Close()
	return nil
}

func (k *KVServiceTests) Reset(t *testctx.T) {
	k.service.Reset()
}

func (k *KVServiceTests) Seed(t *testctx.T) {
	for key, value := range seedItems {
		require.Equal(t, http.StatusCreated, k.client.put(t, key, value).status)
	}
}

func (k *KVServiceTests) CheckConsistent(t *testctx.T) {
	assert.Len(t, k.client.list(t), k.service.Len())
}

func (k *KVServiceTests) GetReturnsSeededValue(t *testctx.T) {
	resp := k.client.get(t, "alpha", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "one", string(resp.body))
}

func (k *KVServiceTests) PutCreatesThenReplaces(t *testctx.T) {
	assert.Equal(t, http.StatusCreated, k.client.put(t, "gamma", "three").status)
	assert.Equal(t, http.StatusNoContent, k.client.put(t, "gamma", "THREE").status)
	assert.Equal(t, "THREE", string(k.client.get(t, "gamma", nil).body))
}

func (k *KVServiceTests) DeleteRemovesItem(t *testctx.T) {
	require.Equal(t, http.StatusNoContent, k.client.delete(t, "beta").status)
	assert.Equal(t, http.StatusNotFound, k.client.get(t, "beta", nil).status)
	assert.Equal(t, http.StatusNotFound, k.client.delete(t, "beta").status)
}

func (k *KVServiceTests) MissingItemIsNotFound(t *testctx.T) {
	t.AssertThat(k.client.get(t, "nope", nil).status, m.Equal(http.StatusNotFound))
}

func (k *KVServiceTests) ConditionalGetReturnsNotModified(t *testctx.T) {
	first := k.client.get(t, "alpha", nil)
	etag := first.header.Get("Etag")
	t.RequireThat(etag, m.Not(m.Equal("")))

	second := k.client.get(t, "alpha", http.Header{"If-None-Match": []string{etag}})
	t.AssertThat(second.status, m.Equal(http.StatusNotModified))

	require.Equal(t, http.StatusNoContent, k.client.put(t, "alpha", "uno").status)
	third := k.client.get(t, "alpha", http.Header{"If-None-Match": []string{etag}})
	t.AssertThat(third.status, m.Equal(http.StatusOK))
	t.AssertThat(third.header.Get("Etag"), m.Not(m.Equal(etag)))
}

func (k *KVServiceTests) ListIsSorted(t *testctx.T) {
	require.Equal(t, http.StatusCreated, k.client.put(t, "aardvark", "zero").status)
	t.AssertThat(k.client.list(t), m.Items(m.Equal("aardvark"), m.Equal("alpha"), m.Equal("beta")))
}

func (k *KVServiceTests) LegacyProtocol(t *testctx.T) {
	resp := k.client.do(t, "GET", "/v1/items", nil, nil)
	assert.Equal(t, http.StatusOK, resp.status)
}

type ExternalTests struct{}

func (e *ExternalTests) ReachesExternalService(t *testctx.T) {
	url := os.Getenv(ExternalURLVar)
	if url == "" {
		t.Abort(ExternalURLVar + " is not set")
	}
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Head(url)
	require.NoError(t, err)
	resp.Body.Close()
	t.LogLine("status: " + resp.Status)
	assert.Less(t, resp.StatusCode, 500)
}
