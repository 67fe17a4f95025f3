package opds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atomFeed(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">` + body + `</feed>`
}

func TestCrawler_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		switch {
		case r.URL.Path == "/recent":
			fmt.Fprint(w, atomFeed(`
  <entry>
    <title>射鵰英雄傳</title>
    <id>urn:uuid:jy1</id>
    <author><name>金庸</name></author>
    <category term="wuxia" label="武俠小說"/>
  </entry>`))
		case r.URL.Query().Get("page") == "2":
			fmt.Fprint(w, atomFeed(`
  <entry>
    <title>彷徨</title>
    <id>urn:uuid:lx2</id>
    <author><name>魯迅</name></author>
    <category term="小說"/>
  </entry>`))
		default:
			fmt.Fprint(w, atomFeed(`
  <title>Root</title>
  <entry>
    <title>吶喊</title>
    <id>urn:uuid:lx1</id>
    <author><name>魯迅</name></author>
    <category term="fiction" label="小說"/>
  </entry>
  <entry>
    <title>Recent Section</title>
    <link rel="subsection" href="/recent" type="application/atom+xml;profile=opds-catalog;kind=acquisition"/>
  </entry>
  <link rel="next" href="/?page=2"/>`))
		}
	}))
	defer server.Close()

	books, err := NewCrawler("", "", server.Client()).Fetch(context.Background(), server.URL+"/")
	require.NoError(t, err)
	require.Len(t, books, 3)

	byID := map[string]string{}
	for _, b := range books {
		byID[b.ID] = b.Title + "/" + b.Author + "/" + b.Subject
	}
	assert.Equal(t, map[string]string{
		"urn:uuid:lx1": "吶喊/魯迅/小說",
		"urn:uuid:lx2": "彷徨/魯迅/小說",
		"urn:uuid:jy1": "射鵰英雄傳/金庸/武俠小說",
	}, byID)
}

func TestCrawler_BasicAuthAndErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "reader" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, atomFeed(`<entry><title>活着</title><id>yh1</id></entry>`))
	}))
	defer server.Close()

	books, err := NewCrawler("reader", "secret", nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "活着", books[0].Title)

	_, err = NewCrawler("", "", nil).Fetch(context.Background(), server.URL)
	assert.ErrorContains(t, err, "status: 401")

	_, err = NewCrawler("", "", nil).Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestCrawler_CyclicCatalog(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, atomFeed(`<link rel="next" href="/"/><link rel="subsection" href="/"/>`))
	}))
	defer server.Close()

	books, err := NewCrawler("", "", nil).Fetch(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, int32(1), hits.Load())
}
