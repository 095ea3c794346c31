package mutantic

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/mutantic/go-mutantic/schema"
)

type leaves struct {
	S  string    `json:"s"`
	B  bool      `json:"b"`
	I  int64     `json:"i"`
	U  uint32    `json:"u"`
	F  float64   `json:"f"`
	By []byte    `json:"by"`
	At time.Time `json:"at"`
	L  []string  `json:"l"`
}

func TestLeafRoundTrip(t *testing.T) {
	in := leaves{
		S:  "hello",
		B:  true,
		I:  -42,
		U:  7,
		F:  3.5,
		By: []byte{0x01, 0x02},
		At: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		L:  []string{"a", "b"},
	}
	doc, err := New(in)
	require.NoError(t, err)
	out, err := doc.State()
	require.NoError(t, err)
	require.Equal(t, in.S, out.S)
	require.Equal(t, in.B, out.B)
	require.Equal(t, in.I, out.I)
	require.Equal(t, in.U, out.U)
	require.Equal(t, in.F, out.F)
	require.Equal(t, in.By, out.By)
	require.True(t, in.At.Equal(out.At))
	require.Equal(t, in.L, out.L)
}

type propPage struct {
	S string   `json:"s"`
	B bool     `json:"b"`
	I int64    `json:"i"`
	F float64  `json:"f"`
	L []string `json:"l"`
}

func TestRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("from_crdt(to_crdt(v)) == v",
		prop.ForAll(
			func(s string, b bool, i int64, f float64, l []string) bool {
				in := propPage{S: s, B: b, I: i, F: f, L: l}
				doc, err := New(in)
				if err != nil {
					return false
				}
				out, err := doc.State()
				if err != nil {
					return false
				}
				if out.S != in.S || out.B != in.B || out.I != in.I || out.F != in.F {
					return false
				}
				if len(out.L) != len(in.L) {
					return false
				}
				for j := range in.L {
					if out.L[j] != in.L[j] {
						return false
					}
				}
				return true
			},
			gen.AnyString(),
			gen.Bool(),
			gen.Int64(),
			gen.Float64Range(-1e9, 1e9),
			gen.SliceOf(gen.AlphaString()),
		))
	properties.TestingRun(t)
}

func TestSetShapeMismatch(t *testing.T) {
	doc, err := New(techPage())
	require.NoError(t, err)
	err = doc.Mutate(func(root *Record) error {
		return root.Set("collection", 42)
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	err = doc.Mutate(func(root *Record) error {
		return root.Set("no_such_field", "x")
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	err = doc.Mutate(func(root *Record) error {
		posts, err := root.Seq("posts")
		if err != nil {
			return err
		}
		return posts.Append(Author{ID: "a", Name: "n"})
	})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestNumericCoercionOnRead(t *testing.T) {
	type nums struct {
		I int64   `json:"i"`
		F float64 `json:"f"`
	}
	doc, err := New(nums{I: 1, F: 2})
	require.NoError(t, err)
	// a peer writing JSON-ish numbers may flip int and float kinds
	require.NoError(t, doc.Doc().RootMap().Set("i", float64(3)))
	require.NoError(t, doc.Doc().RootMap().Set("f", int64(4)))
	state, err := doc.State()
	require.NoError(t, err)
	require.Equal(t, int64(3), state.I)
	require.Equal(t, float64(4), state.F)

	// a fractional float does not coerce to int
	require.NoError(t, doc.Doc().RootMap().Set("i", 3.5))
	_, err = doc.State()
	require.ErrorIs(t, err, ErrValidation)
}

func TestMissingRequiredFieldOnRead(t *testing.T) {
	doc, err := New(techPage())
	require.NoError(t, err)
	require.NoError(t, doc.Doc().RootMap().Delete("collection"))
	_, err = doc.State()
	require.ErrorIs(t, err, ErrValidation)
}

func TestValueMaterializes(t *testing.T) {
	doc, err := New(techPage())
	require.NoError(t, err)
	err = doc.Mutate(func(root *Record) error {
		v, err := root.Value("posts")
		if err != nil {
			return err
		}
		posts := v.([]Post)
		require.Len(t, posts, 1)
		require.Equal(t, "First Post", posts[0].Title)
		return nil
	})
	require.NoError(t, err)
}

func TestAbsentContainerCreatedFromDefaults(t *testing.T) {
	doc, err := New(techPage())
	require.NoError(t, err)
	require.NoError(t, doc.Doc().RootMap().Delete("posts"))
	err = doc.Mutate(func(root *Record) error {
		posts, err := root.Seq("posts")
		if err != nil {
			return err
		}
		return posts.Append(firstPost())
	})
	require.NoError(t, err)
	state, err := doc.State()
	require.NoError(t, err)
	require.Len(t, state.Posts, 1)
}

func TestSchemaNodesAreShared(t *testing.T) {
	a, err := schema.For[BlogPage]()
	require.NoError(t, err)
	b, err := schema.For[BlogPage]()
	require.NoError(t, err)
	require.Same(t, a, b)
}
