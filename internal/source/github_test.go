package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleListing = `
# Summer Internships

Some markdown text before the table.

<table>
<tr><th>Company</th><th>Role</th><th>Location</th><th>Apply</th><th>Age</th></tr>
<tr>
  <td><strong><a href="https://acme.example.com">Acme Corp</a></strong></td>
  <td>Software Engineer Intern 🎓🛂</td>
  <td>NYC</td>
  <td><div align="center"><a href="https://jobs.acme.example.com/swe-intern?utm=listing"><img src="apply.svg"></a></div></td>
  <td>2d</td>
</tr>
<tr>
  <td>↳</td>
  <td>Data Science Intern</td>
  <td>Remote</td>
  <td><div align="center"><a href="https://jobs.acme.example.com/ds-intern"><img src="apply.svg"></a></div></td>
  <td>2d</td>
</tr>
<tr>
  <td>Globex</td>
  <td>DevOps Intern</td>
  <td>Austin, TX</td>
  <td><div align="center"><a href="https://simplify.jobs/p/globex-devops"><img src="apply.svg"></a></div></td>
  <td>5d</td>
</tr>
<tr>
  <td>Initech</td>
  <td>Backend Intern 🔒</td>
  <td>SF</td>
  <td><div align="center"><a href="https://careers.initech.example.com/backend"><img src="apply.svg"></a></div></td>
  <td>1w</td>
</tr>
</table>
`

func TestParseListing(t *testing.T) {
	candidates, err := parseListing(strings.NewReader(sampleListing))
	require.NoError(t, err)
	require.Len(t, candidates, 3) // the simplify.jobs row is skipped

	require.Equal(t, "Acme Corp", candidates[0].Company)
	require.Equal(t, "Software Engineer Intern", candidates[0].Role, "emoji badges stripped")
	require.Equal(t, "NYC", candidates[0].Location)
	require.Equal(t, "https://jobs.acme.example.com/swe-intern?utm=listing", candidates[0].URL)

	// Continuation row inherits the previous company.
	require.Equal(t, "Acme Corp", candidates[1].Company)
	require.Equal(t, "Data Science Intern", candidates[1].Role)

	require.Equal(t, "Initech", candidates[2].Company)
	require.Equal(t, "Backend Intern", candidates[2].Role)
}

func TestListCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	src := New(srv.URL, zap.NewNop())

	all, err := src.ListCandidates(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	limited, err := src.ListCandidates(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, "Acme Corp", limited[0].Company)
}

func TestListCandidates_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := New(srv.URL, zap.NewNop())
	_, err := src.ListCandidates(context.Background(), 0)
	require.Error(t, err)
}
