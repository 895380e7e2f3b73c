package samples

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/launchdarkly/test-engine/framework/testctx"

	"github.com/stretchr/testify/require"
)

type kvResponse struct {
	status int
	header http.Header
	body   []byte
}

type kvClient struct {
	baseURL string
	http    *http.Client
}

func (c kvClient) do(t *testctx.T, method, path string, body []byte, header http.Header) kvResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	t.LogLineOnFailure(method + " " + path)
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	t.LogLineOnFailure("  => " + resp.Status)
	return kvResponse{status: resp.StatusCode, header: resp.Header, body: data}
}

func (c kvClient) get(t *testctx.T, key string, header http.Header) kvResponse {
	t.Helper()
	return c.do(t, "GET", "/items/"+key, nil, header)
}

func (c kvClient) put(t *testctx.T, key, value string) kvResponse {
	t.Helper()
	return c.do(t, "PUT", "/items/"+key, []byte(value), nil)
}

func (c kvClient) delete(t *testctx.T, key string) kvResponse {
	t.Helper()
	return c.do(t, "DELETE", "/items/"+key, nil, nil)
}

func (c kvClient) list(t *testctx.T) []string {
	t.Helper()
	resp := c.do(t, "GET", "/items", nil, nil)
	require.Equal(t, http.StatusOK, resp.status)
	if len(resp.body) == 0 {
		return nil
	}
	return strings.Split(string(resp.body), "\n")
}
