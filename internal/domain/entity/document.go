package entity

// PageGeometry describes the page size and margins of a document part, in millimetres.
type PageGeometry struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

// A4Portrait is the geometry used for every gallery part.
var A4Portrait = PageGeometry{WidthMM: 210, HeightMM: 297, MarginMM: 15}
