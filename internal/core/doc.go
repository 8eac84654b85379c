// Package core is the file sweeping pipeline: it turns an uploaded CSV or
// Excel file into a cleaned, projected, summarized table and, on request,
// a converted download.
//
// Nothing here knows about HTTP or terminals. The web handlers and the
// sweep CLI both build an [Options] value and call [Pipeline.ProcessBatch].
//
// # Stages
//
// Each file flows through these stages in order:
//
//  1. Detect: [DetectFormat] chooses a parser from the extension (.csv, .xlsx).
//  2. Load: [Load] parses the bytes into a table and infers column kinds.
//  3. Clean: [RemoveDuplicates] then [FillMissingNumeric], each optional.
//  4. Project: [Project] keeps the requested columns.
//  5. Summarize: [Describe] and [BuildHistogram].
//  6. Export: [Export] writes CSV or Excel bytes into a [Blob].
//  7. Publish: an optional [Publisher] copies the table elsewhere.
//
// A failure stops that file only. Its [FileReport] records the error and
// the batch continues with the next file.
//
// # Error Handling
//
// Stage errors are typed ([UnsupportedFormatError], [LoadError],
// [ColumnNotFoundError], [PublishError]). [MapError] turns any error into a
// [UserMessage] with a support code; see error_messages.go for the list.
package core
