package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fakeInstallationAPI(t *testing.T, tokenCalls *atomic.Int32, expires time.Time) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/installations/7/access_tokens":
			tokenCalls.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = fmt.Fprintf(w, `{"token":"ghs_inst","expires_at":%q}`, expires.Format(time.RFC3339))
		case "/installation/repositories":
			assert.Equal(t, "Bearer ghs_inst", r.Header.Get("Authorization"))
			if r.URL.Query().Get("page") == "2" {
				_, _ = w.Write([]byte(`{"total_count":3,"repositories":[{"id":3,"name":"c","full_name":"o/c"}]}`))
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/installation/repositories?page=2>; rel="next"`, srv.URL))
			_, _ = w.Write([]byte(`{"total_count":3,"repositories":[{"id":1,"name":"a","full_name":"o/a"},{"id":2,"name":"b","full_name":"o/b"}]}`))
		case "/repos/o/a":
			_, _ = w.Write([]byte(`{"id":1,"name":"a","full_name":"o/a","default_branch":"main","topics":["go"]}`))
		case "/repos/o/a/commits":
			assert.Equal(t, "10", r.URL.Query().Get("per_page"))
			_, _ = w.Write([]byte(`[{"sha":"s1","commit":{"message":"first","author":{"name":"Ann"}}}]`))
		case "/repos/o/empty":
			_, _ = w.Write([]byte(`{"id":9,"name":"empty","full_name":"o/empty"}`))
		case "/repos/o/empty/commits":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Git Repository is empty."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListRepositoriesPaginatesAndCachesToken(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := fakeInstallationAPI(t, &tokenCalls, time.Now().Add(time.Hour))
	client := NewInstallationClient(newTestIssuer(t, srv.URL, zap.NewNop().Sugar(), time.Now))

	repos, total, err := client.ListRepositories(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, repos, 3)
	require.Equal(t, "o/c", repos[2].GetFullName())

	_, _, err = client.ListRepositories(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int32(1), tokenCalls.Load())
}

func TestInstallationTokenRefreshedNearExpiry(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := fakeInstallationAPI(t, &tokenCalls, time.Now().Add(2*time.Minute))
	client := NewInstallationClient(newTestIssuer(t, srv.URL, zap.NewNop().Sugar(), time.Now))

	for i := 0; i < 2; i++ {
		_, _, err := client.ListRepositories(context.Background(), 7)
		require.NoError(t, err)
	}
	require.Equal(t, int32(2), tokenCalls.Load())
}

func TestRepositoryDetails(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := fakeInstallationAPI(t, &tokenCalls, time.Now().Add(time.Hour))
	client := NewInstallationClient(newTestIssuer(t, srv.URL, zap.NewNop().Sugar(), time.Now))
	ctx := context.Background()

	details, err := client.RepositoryDetails(ctx, 7, "o", "a")
	require.NoError(t, err)
	require.Equal(t, "o/a", details.FullName)
	require.Equal(t, []string{"go"}, details.Topics)
	require.Len(t, details.RecentCommits, 1)
	require.Equal(t, "first", details.RecentCommits[0].Message)

	empty, err := client.RepositoryDetails(ctx, 7, "o", "empty")
	require.NoError(t, err)
	require.Empty(t, empty.RecentCommits)

	_, err = client.RepositoryDetails(ctx, 7, "o", "gone")
	require.Error(t, err)
}
