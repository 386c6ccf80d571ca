// internal/dataset/dataset_test.go
package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleDataset = `{
  "cases": [
    {
      "case_id": "case_001",
      "patient_presentation": "45-year-old male with crushing chest pain radiating to the left arm",
      "relevant_history": "Hypertension, smoker, family history of CAD",
      "lab_results": {"troponin": "elevated", "ecg": "ST elevation in leads II, III, aVF"},
      "expert_diagnosis": "Acute inferior myocardial infarction",
      "expert_reasoning": "Classic presentation with confirmatory ECG and biomarkers",
      "differential_diagnoses": ["Unstable angina", "Aortic dissection", "Pericarditis"],
      "metadata": {"specialty": "cardiology", "difficulty": "moderate"}
    },
    {
      "case_id": "case_002",
      "patient_presentation": "32-year-old female with sudden severe headache",
      "relevant_history": "No significant history",
      "expert_diagnosis": "Subarachnoid hemorrhage",
      "expert_reasoning": "Thunderclap onset warrants immediate imaging",
      "differential_diagnoses": ["Migraine", "Meningitis"]
    }
  ]
}`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golden_dataset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing dataset fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cases, err := Load(writeDataset(t, sampleDataset))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	first := cases[0]
	if first.CaseID != "case_001" {
		t.Errorf("CaseID = %q, want case_001", first.CaseID)
	}
	if first.LabResults["troponin"] != "elevated" {
		t.Errorf("LabResults[troponin] = %q, want elevated", first.LabResults["troponin"])
	}
	if len(first.DifferentialDiagnoses) != 3 {
		t.Errorf("expected 3 differentials, got %d", len(first.DifferentialDiagnoses))
	}
	if first.Metadata["specialty"] != "cardiology" {
		t.Errorf("Metadata[specialty] = %q, want cardiology", first.Metadata["specialty"])
	}
	second := cases[1]
	if second.LabResults != nil {
		t.Errorf("expected nil lab results for case_002, got %v", second.LabResults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing dataset")
	}
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected *dataset.Error, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := Load(writeDataset(t, "{not json"))
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected *dataset.Error, got %v", err)
	}
}

func TestLoadMissingCasesKey(t *testing.T) {
	t.Parallel()

	_, err := Load(writeDataset(t, `{"items": []}`))
	if err == nil {
		t.Fatal("expected error for missing cases key")
	}
	var dsErr *Error
	if !errors.As(err, &dsErr) {
		t.Fatalf("expected *dataset.Error, got %T", err)
	}
	if dsErr.Reason != "invalid dataset format: missing 'cases' key" {
		t.Errorf("unexpected reason: %q", dsErr.Reason)
	}
}

func TestLoadEmptyCases(t *testing.T) {
	t.Parallel()

	cases, err := Load(writeDataset(t, `{"cases": []}`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cases) != 0 {
		t.Fatalf("expected 0 cases, got %d", len(cases))
	}
}

func TestSubset(t *testing.T) {
	t.Parallel()

	cases := []Case{{CaseID: "a"}, {CaseID: "b"}, {CaseID: "c"}}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "zero keeps all", n: 0, want: 3},
		{name: "negative keeps all", n: -5, want: 3},
		{name: "larger than set keeps all", n: 10, want: 3},
		{name: "exact size keeps all", n: 3, want: 3},
		{name: "truncates in order", n: 2, want: 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Subset(cases, tt.n)
			if len(got) != tt.want {
				t.Fatalf("Subset(%d) returned %d cases, want %d", tt.n, len(got), tt.want)
			}
			for i := range got {
				if got[i].CaseID != cases[i].CaseID {
					t.Errorf("case %d = %q, want %q (order must be preserved)", i, got[i].CaseID, cases[i].CaseID)
				}
			}
		})
	}
}

func TestValidateStrict(t *testing.T) {
	t.Parallel()

	t.Run("valid dataset passes", func(t *testing.T) {
		t.Parallel()
		cases, err := ValidateStrict(writeDataset(t, sampleDataset))
		if err != nil {
			t.Fatalf("ValidateStrict returned error: %v", err)
		}
		if len(cases) != 2 {
			t.Fatalf("expected 2 cases, got %d", len(cases))
		}
	})

	t.Run("missing required field fails", func(t *testing.T) {
		t.Parallel()
		_, err := ValidateStrict(writeDataset(t, `{"cases": [{"case_id": "case_001"}]}`))
		if err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("empty case_id fails", func(t *testing.T) {
		t.Parallel()
		_, err := ValidateStrict(writeDataset(t, `{
  "cases": [
    {
      "case_id": "",
      "patient_presentation": "p",
      "relevant_history": "h",
      "expert_diagnosis": "d",
      "expert_reasoning": "r",
      "differential_diagnoses": []
    }
  ]
}`))
		if err == nil {
			t.Fatal("expected validation error for empty case_id")
		}
	})

	t.Run("duplicate case_id fails", func(t *testing.T) {
		t.Parallel()
		doc := `{
  "cases": [
    {
      "case_id": "case_001",
      "patient_presentation": "p",
      "relevant_history": "h",
      "expert_diagnosis": "d",
      "expert_reasoning": "r",
      "differential_diagnoses": []
    },
    {
      "case_id": "case_001",
      "patient_presentation": "p2",
      "relevant_history": "h2",
      "expert_diagnosis": "d2",
      "expert_reasoning": "r2",
      "differential_diagnoses": []
    }
  ]
}`
		_, err := ValidateStrict(writeDataset(t, doc))
		if err == nil {
			t.Fatal("expected validation error for duplicate case_id")
		}
	})
}
