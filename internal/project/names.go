package project

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// The downstream pipeline names its outputs from the input file names. The
// transforms here are a naming contract shared with that pipeline: the
// compression/sequencing suffix is stripped twice (e.g. ".fastq.gz"), then a
// trailing paired-read marker "_R1"/"_R2" collapses to "_R" so both mates of
// a pair land under one sample directory.
var (
	readSuffixPattern = regexp.MustCompile(`(?i)\.(fastq|fq|gz|bz2|zip)$`)
	pairedReadPattern = regexp.MustCompile(`_R\d+$`)
)

// BaseSampleName derives the per-sample output directory name from an input
// file name.
func BaseSampleName(fileName string) string {
	base := readSuffixPattern.ReplaceAllString(fileName, "")
	base = readSuffixPattern.ReplaceAllString(base, "")
	return pairedReadPattern.ReplaceAllString(base, "_R")
}

// ChunkPath is where one uploaded chunk lands. Re-uploading the same
// (fileName, chunkIndex) overwrites in place.
func ChunkPath(root, sessionID, fileName string, chunkIndex int) string {
	return path.Join(root, sessionID, "inputDir", "chunks", fileName, fmt.Sprintf("chunk_%d", chunkIndex))
}

// InputDir is the per-session directory the pipeline reads from.
func InputDir(root, sessionID string) string {
	return path.Join(root, sessionID, "inputDir")
}

// TriggerPath is the marker file the pipeline watches for.
func TriggerPath(root, sessionID, fileName string) string {
	return path.Join(root, "triggers", sessionID+"_"+fileName+".flag")
}

// PredictedOutputPath is where the pipeline will write the filtered VCF for
// one sample, by convention. It is a prediction, not a confirmation.
func PredictedOutputPath(root, sessionID, baseName string) string {
	return path.Join(root, sessionID, sessionID, baseName, baseName+"_filtered.vcf.gz")
}

var scriptPaths = map[string]string{
	"quantum_mode": "/opt/scrips/process_session_quantum.sh",
	"hyper_mode":   "/home/manas/Secondary-Analysis/sentieon/neovar_script/process_session_hyper.sh",
}

// ScriptPathFor maps a processing mode to the pipeline script it runs; modes
// outside the known set map to empty.
func ScriptPathFor(processingMode string) string {
	return scriptPaths[processingMode]
}

// CoerceCount normalizes loosely typed numeric input (JSON numbers, query
// strings, garbage) to a non-negative-friendly int. Anything non-numeric or
// non-finite becomes zero rather than an error.
func CoerceCount(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	case string:
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}
