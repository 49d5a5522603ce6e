package domain

import "testing"

func TestInferCategory(t *testing.T) {
	tests := []struct {
		title       string
		description string
		want        Category
	}{
		{"CI pipeline failed", "", CategoryCICD},
		{"Deploy to staging broken", "", CategoryCICD},
		{"Database connection pool exhausted", "", CategoryDatabase},
		{"db replica lag", "", CategoryDatabase},
		{"Request timeout to upstream", "", CategoryNetwork},
		{"DNS resolution failures", "", CategoryNetwork},
		{"Login failures spiking", "", CategorySecurity},
		{"Unauthorized access attempt", "", CategorySecurity},
		{"High CPU usage", "", CategoryPerformance},
		{"Memory pressure on node", "", CategoryPerformance},
		{"Heartbeat missed", "", CategoryMonitoring},
		{"random text", "", CategoryGeneral},
		{"", "", CategoryGeneral},
		{"Something odd", "the build step crashed", CategoryCICD},
	}

	for _, tt := range tests {
		got := InferCategory(tt.title, tt.description)
		if got != tt.want {
			t.Errorf("InferCategory(%q, %q) = %v, want %v", tt.title, tt.description, got, tt.want)
		}
	}
}

func TestInferCategory_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if got := InferCategory("CI pipeline failed", ""); got != CategoryCICD {
			t.Fatalf("InferCategory not deterministic, got %v on iteration %d", got, i)
		}
	}
}

func TestInferCategory_ShortKeywordsMatchWholeWords(t *testing.T) {
	// "circuit" contains "ci" as a substring but is not a CI alert.
	if got := InferCategory("circuit breaker tripped", ""); got == CategoryCICD {
		t.Errorf("InferCategory(\"circuit breaker tripped\") = %v, want non-ci_cd", got)
	}
}
