package ldap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

var (
	aliceGUID  = uuid.MustParse("5f1d7c2e-8a4b-4c3d-9e2f-1a2b3c4d5e6f")
	bobGUID    = uuid.MustParse("0c9e6a71-23d4-4f5b-8c1e-7d6a5b4c3d2e")
	adminsGUID = uuid.MustParse("9a3c1b2d-4e5f-4a6b-8c7d-0e1f2a3b4c5d")
)

const (
	aliceDN  = "CN=Alice,OU=People,DC=example,DC=com"
	bobDN    = "CN=Bob,OU=People,DC=example,DC=com"
	adminsDN = "CN=Admins,OU=Groups,DC=example,DC=com"
)

func entry(dn string, guid uuid.UUID, attrs map[string][]string) *goldap.Entry {
	e := goldap.NewEntry(dn, attrs)
	raw := guidBytes(guid)
	e.Attributes = append(e.Attributes, &goldap.EntryAttribute{
		Name:       "objectGUID",
		Values:     []string{string(raw)},
		ByteValues: [][]byte{raw},
	})
	return e
}

type fakeConn struct {
	bindErr  error
	results  map[string][]*goldap.Entry
	searchFn func(filter string) ([]*goldap.Entry, error)
	filters  []string
	binds    int
	closed   int
}

func (c *fakeConn) Bind(username, password string) error {
	c.binds++
	return c.bindErr
}

func (c *fakeConn) SearchWithPaging(req *goldap.SearchRequest, pagingSize uint32) (*goldap.SearchResult, error) {
	c.filters = append(c.filters, req.Filter)
	if c.searchFn != nil {
		entries, err := c.searchFn(req.Filter)
		if err != nil {
			return nil, err
		}
		return &goldap.SearchResult{Entries: entries}, nil
	}
	return &goldap.SearchResult{Entries: c.results[req.Filter]}, nil
}

func newTestGateway(c *fakeConn, caching bool) *Gateway {
	return New(directory.Config{
		URL:      "ldap://dc.example.com",
		BindDN:   "CN=sync,DC=example,DC=com",
		BaseDN:   "DC=example,DC=com",
		Caching:  caching,
		CacheTTL: time.Minute,
	}, withDialer(func(ctx context.Context, cfg directory.Config) (conn, func(), error) {
		return c, func() { c.closed++ }, nil
	}))
}

func TestGateway_ConnectInvalidCredentials(t *testing.T) {
	c := &fakeConn{bindErr: goldap.NewError(goldap.LDAPResultInvalidCredentials, errors.New("80090308: LdapErr"))}
	g := newTestGateway(c, false)

	err := g.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, directory.ErrConnection))
	assert.Contains(t, err.Error(), "invalid username or password")
	assert.False(t, g.Connected())
	assert.Equal(t, 1, c.closed)
}

func TestGateway_ConnectNoURL(t *testing.T) {
	err := New(directory.Config{}).Connect(context.Background())
	assert.True(t, errors.Is(err, directory.ErrConnection))
}

func TestGateway_ConnectOnce(t *testing.T) {
	c := &fakeConn{}
	g := newTestGateway(c, false)

	require.NoError(t, g.Connect(context.Background()))
	require.NoError(t, g.Connect(context.Background()))
	assert.True(t, g.Connected())
	assert.Equal(t, 1, c.binds)

	require.NoError(t, g.Close())
	assert.False(t, g.Connected())
}

func TestGateway_SearchRewritesMemberDNs(t *testing.T) {
	c := &fakeConn{searchFn: func(filter string) ([]*goldap.Entry, error) {
		switch {
		case strings.HasPrefix(filter, "(&(objectCategory=person)"):
			return []*goldap.Entry{
				entry(aliceDN, aliceGUID, map[string][]string{
					"sAMAccountName": {"alice"},
					"memberOf":       {adminsDN, "CN=Outside,DC=other,DC=com"},
				}),
				entry(bobDN, bobGUID, map[string][]string{
					"sAMAccountName": {"bob"},
					"proxyAddresses": {"smtp:bob@example.com", "smtp:b@example.com"},
				}),
			}, nil
		case strings.HasPrefix(filter, "(|(distinguishedName="):
			return []*goldap.Entry{entry(adminsDN, adminsGUID, nil)}, nil
		}
		return nil, nil
	}}
	g := newTestGateway(c, false)

	objs, err := g.Search(context.Background(), "user", nil)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	alice := objs[0]
	assert.Equal(t, aliceGUID.String(), alice.ExternalID)
	assert.Equal(t, aliceDN, alice.DN)
	assert.Equal(t, "alice", alice.Get("sAMAccountName"))
	assert.Equal(t, aliceGUID.String(), alice.Get("objectGUID"))
	assert.Equal(t, directory.Membership{
		State: directory.MembershipPopulated,
		IDs:   []string{adminsGUID.String()},
	}, alice.Membership("memberOf"), "DNs outside the base are dropped")

	bob := objs[1]
	assert.Equal(t, []string{"smtp:bob@example.com", "smtp:b@example.com"}, bob.Get("proxyAddresses"))
	assert.Equal(t, directory.MembershipAbsent, bob.Membership("memberOf").State)

	require.Len(t, c.filters, 2, "one search plus one batched DN lookup")
	assert.Equal(t, "(|(distinguishedName=CN=Admins,OU=Groups,DC=example,DC=com)(distinguishedName=CN=Outside,DC=other,DC=com))", c.filters[1])

	_, err = g.Search(context.Background(), "user", nil)
	require.NoError(t, err)
	assert.Len(t, c.filters, 4, "unresolvable DNs are looked up again")
}

func TestGateway_SearchMembersInResult(t *testing.T) {
	c := &fakeConn{searchFn: func(filter string) ([]*goldap.Entry, error) {
		return []*goldap.Entry{
			entry(adminsDN, adminsGUID, map[string][]string{"cn": {"admins"}, "member": {aliceDN}}),
			entry(aliceDN, aliceGUID, nil),
		}, nil
	}}
	g := newTestGateway(c, false)

	objs, err := g.Search(context.Background(), "group", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{aliceGUID.String()}, objs[0].Membership("member").IDs)
	assert.Len(t, c.filters, 1, "DNs of the result itself need no lookup")
}

func TestGateway_SearchCaching(t *testing.T) {
	c := &fakeConn{searchFn: func(filter string) ([]*goldap.Entry, error) {
		return []*goldap.Entry{entry(aliceDN, aliceGUID, map[string][]string{"sAMAccountName": {"alice"}})}, nil
	}}
	g := newTestGateway(c, true)
	ctx := context.Background()

	first, err := g.Search(ctx, "user", directory.Filter{"sAMAccountName": "alice"})
	require.NoError(t, err)
	second, err := g.Search(ctx, "user", directory.Filter{"sAMAccountName": "alice"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, c.filters, 1)
}

func TestGateway_SearchNetworkError(t *testing.T) {
	c := &fakeConn{searchFn: func(filter string) ([]*goldap.Entry, error) {
		return nil, goldap.NewError(goldap.ErrorNetwork, errors.New("connection reset"))
	}}
	g := newTestGateway(c, false)

	_, err := g.Search(context.Background(), "user", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, directory.ErrConnection))
	assert.False(t, g.Connected())
}

func TestGateway_SearchSkipsEntriesWithoutID(t *testing.T) {
	c := &fakeConn{searchFn: func(filter string) ([]*goldap.Entry, error) {
		return []*goldap.Entry{goldap.NewEntry("CN=NoGUID,DC=example,DC=com", map[string][]string{"cn": {"x"}})}, nil
	}}
	objs, err := newTestGateway(c, false).Search(context.Background(), "user", nil)
	require.NoError(t, err)
	assert.Empty(t, objs)
}
