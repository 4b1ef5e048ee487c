package models

import "testing"

func TestDocumentMetaAccessors(t *testing.T) {
	tests := []struct {
		name         string
		doc          Document
		wantType     string
		wantCategory string
	}{
		{
			name: "both present",
			doc: Document{Text: "x", Metadata: map[string]interface{}{
				"type":     "dsm5_criteria",
				"category": "Major Depressive Disorder",
			}},
			wantType:     "dsm5_criteria",
			wantCategory: "Major Depressive Disorder",
		},
		{
			name: "non-string values ignored",
			doc: Document{Text: "x", Metadata: map[string]interface{}{
				"type":     42,
				"category": []string{"a"},
			}},
		},
		{
			name: "nil metadata",
			doc:  Document{Text: "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.Type(); got != tt.wantType {
				t.Errorf("Type() = %q, want %q", got, tt.wantType)
			}
			if got := tt.doc.Category(); got != tt.wantCategory {
				t.Errorf("Category() = %q, want %q", got, tt.wantCategory)
			}
		})
	}
}
