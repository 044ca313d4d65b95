package vectorstore

// matchesFilter reports whether a document satisfies every filter entry.
// "source" and "parent_document_id" match the first-class fields; any other
// key is compared against the metadata map, where an absent key never
// matches.
func matchesFilter(doc *VectorDocument, filters map[string]interface{}) bool {
	for key, want := range filters {
		switch key {
		case "source":
			if !valuesEqual(doc.Source, want) {
				return false
			}
		case "parent_document_id":
			if !valuesEqual(doc.ParentDocumentID, want) {
				return false
			}
		default:
			got, ok := doc.Metadata[key]
			if !ok || !valuesEqual(got, want) {
				return false
			}
		}
	}
	return true
}

// valuesEqual compares metadata values loosely enough to survive a JSON
// round trip, where ints come back as float64.
func valuesEqual(got, want interface{}) bool {
	if got == want {
		return true
	}
	gf, gok := asFloat(got)
	wf, wok := asFloat(want)
	if gok && wok {
		return gf == wf
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
