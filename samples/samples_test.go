package samples

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/launchdarkly/test-engine/framework/discovery"
	"github.com/launchdarkly/test-engine/framework/engine"
	"github.com/launchdarkly/test-engine/framework/reporting"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runModule(t *testing.T, module *discovery.Module, options ...engine.ExecutorOption) reporting.Results {
	e, err := engine.NewExecutor(context.Background(), options...)
	require.NoError(t, err)
	c := reporting.NewCollector()
	e.Subscribe(c)
	require.NoError(t, e.ExecuteSource(discovery.ModuleSet{module}))
	return c.Results()
}

func TestSamplesPass(t *testing.T) {
	results := runModule(t, Module())
	for _, f := range results.Failures {
		t.Errorf("%s: %s %v\n%s", f.Test.DisplayName, f.Message, f.Errors, f.Log)
	}
	assert.True(t, results.OK())
	assert.Equal(t, engine.Counts{Total: 7, Passed: 6, Skipped: 1}, results.Counts)
}

func TestSamplesPassConcurrently(t *testing.T) {
	results := runModule(t, Module(), engine.WithConcurrent(true), engine.WithWorkerCount(3))
	assert.True(t, results.OK())
	assert.Equal(t, 6, results.Counts.Passed)
}

func TestSmokeGroup(t *testing.T) {
	e, err := engine.NewExecutor(context.Background())
	require.NoError(t, err)
	c := reporting.NewCollector()
	e.Subscribe(c)
	require.NoError(t, e.ExecuteSource(discovery.ModuleSet{Module()}, "smoke"))

	var names []string
	for _, r := range c.Results().Tests {
		names = append(names, r.Test.MethodName)
	}
	assert.ElementsMatch(t, []string{"GetReturnsSeededValue", "MissingItemIsNotFound"}, names)
}

func TestSamplesRegistered(t *testing.T) {
	_, ok := discovery.Default().Find(ModuleName)
	assert.True(t, ok)
}

func TestExternalSuiteAbortsWithoutURL(t *testing.T) {
	t.Setenv(ExternalURLVar, "")
	results := runModule(t, ExternalModule())
	require.Len(t, results.Tests, 1)
	assert.Equal(t, engine.Aborted, results.Tests[0].Outcome)
	assert.Equal(t, ExternalURLVar+" is not set", results.Tests[0].UserMessage)
}

func TestExternalSuiteReachesServer(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server) {
		t.Setenv(ExternalURLVar, server.URL)

		results := runModule(t, ExternalModule())
		require.Len(t, results.Tests, 1)
		assert.Equal(t, engine.Passed, results.Tests[0].Outcome)
	})
}

func TestExternalSuiteFailsOnServerError(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(503), func(server *httptest.Server) {
		t.Setenv(ExternalURLVar, server.URL)

		results := runModule(t, ExternalModule())
		require.Len(t, results.Tests, 1)
		assert.Equal(t, engine.Failed, results.Tests[0].Outcome)
	})
}

func TestKVService(t *testing.T) {
	httphelpers.WithServer(NewKVService(nil), func(server *httptest.Server) {
		put := func(key, value string) int {
			req, err := http.NewRequest("PUT", server.URL+"/items/"+key, strings.NewReader(value))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			return resp.StatusCode
		}
		assert.Equal(t, http.StatusCreated, put("b", "2"))
		assert.Equal(t, http.StatusCreated, put("a", "1"))
		assert.Equal(t, http.StatusNoContent, put("a", "one"))

		resp, err := http.Get(server.URL + "/items")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, "a\nb", string(body))

		resp, err = http.Get(server.URL + "/items/a")
		require.NoError(t, err)
		body, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, "one", string(body))
		assert.Equal(t, etagOf([]byte("one")), resp.Header.Get("Etag"))

		resp, err = http.Post(server.URL+"/items/a", "", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
