package resultset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafodb/grafo/pkg/graph"
)

func row(vals ...int64) []graph.Value {
	r := make([]graph.Value, len(vals))
	for i, v := range vals {
		r[i] = graph.NewIntValue(v)
	}
	return r
}

func firstColumn(rs *ResultSet) []int64 {
	out := make([]int64, 0, rs.Len())
	for _, r := range rs.Rows() {
		out = append(out, r[0].Int())
	}
	return out
}

func TestAddAndLen(t *testing.T) {
	rs := New([]string{"n"}, false, 0)
	require.True(t, rs.Add(row(1)))
	require.True(t, rs.Add(row(1)))
	rs.Finalize()
	require.Equal(t, 2, rs.Len())
}

func TestDistinct(t *testing.T) {
	rs := New([]string{"n"}, true, 0)
	require.True(t, rs.Add(row(1)))
	require.False(t, rs.Add(row(1)))
	require.True(t, rs.Add(row(2)))
	rs.Finalize()
	require.Equal(t, []int64{1, 2}, firstColumn(rs))
}

func TestLimitWithoutOrderStopsEarly(t *testing.T) {
	rs := New([]string{"n"}, false, 2)
	rs.Add(row(1))
	require.False(t, rs.Full())
	rs.Add(row(2))
	require.True(t, rs.Full())
}

func TestOrderMaterializesThenTruncates(t *testing.T) {
	rs := New([]string{"n"}, false, 2)
	rs.SetOrder([]int{0}, false)

	for _, v := range []int64{3, 1, 2} {
		rs.Add(row(v))
		// Ordered sets are never full early
		require.False(t, rs.Full())
	}

	rs.Finalize()
	require.Equal(t, []int64{1, 2}, firstColumn(rs))
}

func TestOrderDescending(t *testing.T) {
	rs := New([]string{"n", "m"}, false, 0)
	rs.SetOrder([]int{0}, true)
	rs.Add(row(1, 10))
	rs.Add(row(3, 30))
	rs.Add(row(2, 20))
	rs.Finalize()
	require.Equal(t, []int64{3, 2, 1}, firstColumn(rs))
}

func TestOrderIsStable(t *testing.T) {
	rs := New([]string{"n", "m"}, false, 0)
	rs.SetOrder([]int{0}, false)
	rs.Add(row(1, 10))
	rs.Add(row(1, 20))
	rs.Add(row(1, 30))
	rs.Finalize()

	second := make([]int64, 0, 3)
	for _, r := range rs.Rows() {
		second = append(second, r[1].Int())
	}
	require.Equal(t, []int64{10, 20, 30}, second)
}

func TestString(t *testing.T) {
	rs := New([]string{"a", "b"}, false, 0)
	rs.Add(row(1, 2))
	rs.Finalize()
	require.Equal(t, "a\tb\n1\t2\n", rs.String())
}
