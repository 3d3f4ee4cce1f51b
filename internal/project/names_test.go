package project

import "testing"

func TestBaseSampleName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sample_R1.fastq.gz", "sample_R"},
		{"sample_R2.fastq.gz", "sample_R"},
		{"s2_R1.fq.gz", "s2_R"},
		{"plain.fastq", "plain"},
		{"archive.ZIP", "archive"},
		{"double.fq.bz2", "double"},
		{"noext_R12", "noext_R"},
		{"noext", "noext"},
	}
	for _, tc := range cases {
		if got := BaseSampleName(tc.in); got != tc.want {
			t.Fatalf("BaseSampleName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChunkAndTriggerPaths(t *testing.T) {
	if got := ChunkPath("/neovar", "sess1", "a.fastq.gz", 3); got != "/neovar/sess1/inputDir/chunks/a.fastq.gz/chunk_3" {
		t.Fatalf("unexpected chunk path %q", got)
	}
	if got := TriggerPath("/neovar", "sess1", "a.fastq.gz"); got != "/neovar/triggers/sess1_a.fastq.gz.flag" {
		t.Fatalf("unexpected trigger path %q", got)
	}
	if got := PredictedOutputPath("/neovar", "sess1", "s1_R"); got != "/neovar/sess1/sess1/s1_R/s1_R_filtered.vcf.gz" {
		t.Fatalf("unexpected output path %q", got)
	}
	if got := InputDir("/neovar", "sess1"); got != "/neovar/sess1/inputDir" {
		t.Fatalf("unexpected input dir %q", got)
	}
}

func TestScriptPathFor(t *testing.T) {
	if ScriptPathFor("quantum_mode") == "" {
		t.Fatalf("expected a script path for quantum_mode")
	}
	if ScriptPathFor("hyper_mode") == "" {
		t.Fatalf("expected a script path for hyper_mode")
	}
	if got := ScriptPathFor("turbo_mode"); got != "" {
		t.Fatalf("expected empty script path for unknown mode, got %q", got)
	}
}

func TestCoerceCount(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{nil, 0},
		{"abc", 0},
		{"42", 42},
		{"  7 ", 7},
		{"", 0},
		{float64(3), 3},
		{int64(9), 9},
		{12, 12},
		{[]string{"x"}, 0},
	}
	for _, tc := range cases {
		if got := CoerceCount(tc.in); got != tc.want {
			t.Fatalf("CoerceCount(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
