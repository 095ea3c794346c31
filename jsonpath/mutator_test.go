package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	mutantic "github.com/mutantic/go-mutantic"
)

type author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type comment struct {
	ID      string `json:"id"`
	Author  author `json:"author"`
	Content string `json:"content"`
}

type post struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Subtitle *string   `json:"subtitle"`
	Author   author    `json:"author"`
	Comments []comment `json:"comments"`
}

type blogPage struct {
	Collection string `json:"collection"`
	Posts      []post `json:"posts"`
}

func newBlog(t *testing.T) *mutantic.Document[blogPage] {
	t.Helper()
	doc, err := mutantic.New(blogPage{
		Collection: "tech",
		Posts: []post{
			{
				ID:       "post1",
				Title:    "First Post",
				Author:   author{ID: "author1", Name: "Author One"},
				Comments: []comment{},
			},
		},
	})
	require.NoError(t, err)
	return doc
}

func niceComment() comment {
	return comment{
		ID:      "comment1",
		Author:  author{ID: "author2", Name: "Author Two"},
		Content: "Nice post!",
	}
}

func TestSet(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		return New(root).Set("$.posts[0].title", "Updated First Post")
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Equal(t, "Updated First Post", state.Posts[0].Title)
}

func TestSetRootField(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		return New(root).Set("$.collection", "science")
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Equal(t, "science", state.Collection)
}

func TestAppend(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		return New(root).Append("$.posts[0].comments", niceComment())
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Len(t, state.Posts[0].Comments, 1)
	require.Equal(t, "Nice post!", state.Posts[0].Comments[0].Content)
}

func TestInsert(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		m := New(root)
		if err := m.Append("$.posts[0].comments", niceComment()); err != nil {
			return err
		}
		first := niceComment()
		first.ID, first.Content = "comment0", "First!"
		return m.Insert("$.posts[0].comments", 0, first)
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Len(t, state.Posts[0].Comments, 2)
	require.Equal(t, "First!", state.Posts[0].Comments[0].Content)
	require.Equal(t, "Nice post!", state.Posts[0].Comments[1].Content)
}

func TestPop(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		m := New(root)
		if err := m.Append("$.posts[0].comments", niceComment()); err != nil {
			return err
		}
		return m.Pop("$.posts[0].comments", -1)
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Len(t, state.Posts[0].Comments, 0)
}

func TestDeleteElement(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		return New(root).Delete("$.posts[0]")
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Len(t, state.Posts, 0)
}

func TestDeleteOptionalField(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		m := New(root)
		if err := m.Set("$.posts[0].subtitle", "a subtitle"); err != nil {
			return err
		}
		return m.Delete("$.posts[0].subtitle")
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Nil(t, state.Posts[0].Subtitle)
}

func TestDeleteRequiredFieldFails(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		return New(root).Delete("$.posts[0].title")
	})
	require.ErrorIs(t, err, mutantic.ErrSchemaMismatch)
}

func TestPathErrors(t *testing.T) {
	doc := newBlog(t)
	err := doc.Mutate(func(root *mutantic.Record) error {
		m := New(root)
		// field of a list
		if err := m.Set("$.posts.title", "x"); err == nil {
			t.Error("field segment on a list did not fail")
		}
		// index of a record
		if err := m.Set("$[0]", "x"); err == nil {
			t.Error("index segment on a record did not fail")
		}
		// append to a scalar
		if err := m.Append("$.collection", "x"); err == nil {
			t.Error("append to a scalar did not fail")
		}
		// set through a scalar
		if err := m.Set("$.collection.x", "x"); err == nil {
			t.Error("descending through a scalar did not fail")
		}
		// the root itself is not assignable
		if err := m.Set("$", "x"); err == nil {
			t.Error("setting the root did not fail")
		}
		return nil
	})
	require.NoError(t, err)
}
