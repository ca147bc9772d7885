// Package log defines standard attribute keys for binning operations.
//
// Using these keys keeps log records from the bin, featuregroup and dataset
// packages consistent. Keys follow a hierarchical naming convention
// (e.g., "group.layout", "data.samples").

package log

// Operation Context
const (
	// OperationKey specifies the operation being performed.
	// Standard values: see the Operation* constants below.
	OperationKey = "op.name"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "featuregroup", "dataset", "bin"
	ComponentKey = "op.component"
)

// Data Shape
const (
	// SamplesKey indicates the number of rows held by a storage unit or dataset.
	SamplesKey = "data.samples"

	// UsedSamplesKey indicates the number of rows kept by a row-subset load.
	UsedSamplesKey = "data.used_samples"

	// FeaturesKey indicates the number of raw features in a dataset.
	FeaturesKey = "data.features"

	// DataSizeKey indicates a serialized size in bytes.
	DataSizeKey = "data.size_bytes"
)

// Feature group layout
const (
	// GroupIndexKey identifies a feature group inside a dataset.
	GroupIndexKey = "group.index"

	// GroupFeaturesKey is the number of features packed into a group.
	GroupFeaturesKey = "group.features"

	// GroupLayoutKey describes the storage layout of a group.
	// Values: "dense", "sparse", "multi_val"
	GroupLayoutKey = "group.layout"

	// TotalBinKey is the size of the shared bin-id space of a group.
	TotalBinKey = "group.total_bin"

	// FeatureIndexKey identifies a feature (global or sub-feature, depending on context).
	FeatureIndexKey = "feature.index"

	// NumBinKey is the number of bins of a single feature.
	NumBinKey = "feature.num_bin"

	// SparseRateKey is the fraction of rows falling in the most frequent bin.
	SparseRateKey = "feature.sparse_rate"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey records the number of goroutines used by a fan-out.
	WorkersKey = "perf.workers"

	// CompressionKey records the compression codec of a dataset image.
	CompressionKey = "io.compression"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// FailedUnitsKey counts units that failed during a run-to-completion fan-out.
	FailedUnitsKey = "error.failed_units"

	// ErrorOperationKey names the decode step or fan-out unit an error came from.
	ErrorOperationKey = "error.op"

	// ErrorOffsetKey is the byte offset at which a corrupt buffer was detected.
	ErrorOffsetKey = "error.offset"
)

// Standard attribute values.
const (
	OperationPush       = "push"
	OperationFinishLoad = "finish_load"
	OperationSplit      = "split"
	OperationSave       = "save"
	OperationLoad       = "load"
	OperationCopySubrow = "copy_subrow"

	LayoutDense    = "dense"
	LayoutSparse   = "sparse"
	LayoutMultiVal = "multi_val"

	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorFinishLoad        = "FINISH_LOAD_FAILED"
	ErrorCorruptData       = "CORRUPT_DATA"
)
