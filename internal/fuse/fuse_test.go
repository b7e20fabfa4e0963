package fuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bozhu/estatemap/internal/model"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"万科城", "万科城"},
		{"万科城 ", "万科城"},
		{"  万科城", "万科城"},
		{"万科·城", "万科城"},
		{"万科城（二期）", "万科城二期"},
		{"万科城(二期)", "万科城二期"},
		{"GREEN LAND·绿地", "green land绿地"},
		{"ＧＲＥＥＮ　ＬＡＮＤ", "green land"},
		{"紫薇 · 风尚", "紫薇 风尚"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.in), "Key(%q)", tt.in)
	}
}

func TestKey_SameRuleBothSides(t *testing.T) {
	assert.Equal(t, Key("万科城"), Key("万科城 "))
	assert.Equal(t, Key("高科·绿水东城"), Key("高科绿水东城"))
}

func resale(name, price, year string) model.ResolvedRecord {
	return model.ResolvedRecord{
		RawRecord: model.RawRecord{Name: name, Price: price, BuildYear: year, Source: model.SourceResale},
		Lng:       108.88, Lat: 34.20,
		Status:   model.StatusPOI,
		District: "高新一期",
	}
}

func newdev(name, price, year string) model.ResolvedRecord {
	return model.ResolvedRecord{
		RawRecord: model.RawRecord{Name: name, Price: price, BuildYear: year, Source: model.SourceNewDev},
		Lng:       108.82, Lat: 34.16,
		Status:   model.StatusGeocode,
		District: "高新三期",
	}
}

func TestFuse_CrossSourceMerge(t *testing.T) {
	// Same community listed on both sides, whitespace variation in the
	// name, price only on the resale side.
	r := []model.ResolvedRecord{resale("万科城", "12000", "")}
	n := []model.ResolvedRecord{newdev("万科城 ", "", "2023")}

	out := Fuse(r, n)
	require.Len(t, out, 1)
	assert.Equal(t, model.ProvenanceBoth, out[0].Provenance)
	assert.Equal(t, "12000", out[0].Price)
	assert.Equal(t, "2023", out[0].BuildYear)
	// Resale resolved, so its coordinate and district win the tie.
	assert.Equal(t, 108.88, out[0].Lng)
	assert.Equal(t, "高新一期", out[0].District)
}

func TestFuse_ThreePlusTwoWithOneCollision(t *testing.T) {
	r := []model.ResolvedRecord{
		resale("枫林绿洲", "15000", "2008"),
		resale("万科城", "12000", ""),
		resale("逸翠园", "18000", "2012"),
	}
	n := []model.ResolvedRecord{
		newdev("万科城", "", "2023"),
		newdev("永威星悦台", "21000", ""),
	}

	out := Fuse(r, n)
	require.Len(t, out, 4)

	var both, resaleOnly, newOnly int
	for _, f := range out {
		switch f.Provenance {
		case model.ProvenanceBoth:
			both++
		case model.ProvenanceResaleOnly:
			resaleOnly++
		case model.ProvenanceNewOnly:
			newOnly++
		}
	}
	assert.Equal(t, 1, both)
	assert.Equal(t, 2, resaleOnly)
	assert.Equal(t, 1, newOnly)

	// Stable ordering: resale input order, merge at the resale position,
	// unmatched newdev appended in input order.
	assert.Equal(t, "枫林绿洲", out[0].Name)
	assert.Equal(t, "万科城", out[1].Name)
	assert.Equal(t, "逸翠园", out[2].Name)
	assert.Equal(t, "永威星悦台", out[3].Name)
}

func TestFuse_WithinSourceDuplicatesFirstWins(t *testing.T) {
	r := []model.ResolvedRecord{
		resale("中铁滨湖名邸", "13500", "2016"),
		resale("中铁滨湖名邸 ", "99999", "1999"),
	}

	out := Fuse(r, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "13500", out[0].Price)
	assert.Equal(t, "2016", out[0].BuildYear)
}

func TestFuse_CountInvariant(t *testing.T) {
	r := []model.ResolvedRecord{
		resale("a", "1", ""), resale("b", "2", ""), resale("a", "3", ""),
	}
	n := []model.ResolvedRecord{
		newdev("b", "", "2020"), newdev("c", "", "2021"), newdev("c", "", "2022"),
	}

	out := Fuse(r, n)
	keys := map[string]bool{}
	for _, rec := range append(r, n...) {
		keys[Key(rec.Name)] = true
	}
	assert.Len(t, out, len(keys))
}

func TestFuse_EmptyInputs(t *testing.T) {
	assert.Empty(t, Fuse(nil, nil))

	onlyResale := Fuse([]model.ResolvedRecord{resale("a", "1", "")}, nil)
	require.Len(t, onlyResale, 1)
	assert.Equal(t, model.ProvenanceResaleOnly, onlyResale[0].Provenance)

	onlyNew := Fuse(nil, []model.ResolvedRecord{newdev("b", "", "")})
	require.Len(t, onlyNew, 1)
	assert.Equal(t, model.ProvenanceNewOnly, onlyNew[0].Provenance)
}

func TestFuse_UnresolvedResalePrefersResolvedNewdev(t *testing.T) {
	r := resale("天地源", "", "")
	r.Status = model.StatusNone
	r.District = "其他"
	n := newdev("天地源", "19000", "")

	out := Fuse([]model.ResolvedRecord{r}, []model.ResolvedRecord{n})
	require.Len(t, out, 1)
	assert.Equal(t, model.StatusGeocode, out[0].Status)
	assert.Equal(t, 108.82, out[0].Lng)
	assert.Equal(t, "高新三期", out[0].District)
	// Numeric fields still prefer resale only when present; here it is not.
	assert.Equal(t, "19000", out[0].Price)
}

func TestFuse_BothUnresolvedStaysUnresolved(t *testing.T) {
	r := resale("未知小区", "8000", "")
	r.Status = model.StatusNone
	n := newdev("未知小区", "", "")
	n.Status = model.StatusNone

	out := Fuse([]model.ResolvedRecord{r}, []model.ResolvedRecord{n})
	require.Len(t, out, 1)
	assert.Equal(t, model.StatusNone, out[0].Status)
	assert.Equal(t, model.ProvenanceBoth, out[0].Provenance)
	// The record is kept, never dropped.
	assert.Equal(t, "8000", out[0].Price)
}
