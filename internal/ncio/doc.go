// Package ncio reads and writes the self-describing array files that carry
// grid geometry, tracer state, and diagnostics between runs.
//
// Files are netCDF classic containers (via github.com/ctessum/cdf) with
// named dimensions, named variables, and string-keyed attributes:
//
//   - [Dims]: ordered (name, length) dimension tuples
//   - [Attrs]: variable or file-level attribute mappings
//   - [VarDef]: a variable declaration (name, type, dimensions, attributes)
//   - [File]: write handle with an explicit define phase and data phase
//   - [Dataset]: read handle over an existing file
//
// A [File] starts in the define phase, where dimensions, variables, and
// global attributes are declared. [File.EndDefine] commits the schema and
// switches to the data phase, where values are written with [File.Put].
// Declaring after EndDefine or writing before it is an error, so a caller
// cannot interleave schema changes with data.
//
// Attributes are written in sorted key order and variables in declaration
// order, so regenerating a file from the same inputs reproduces it.
package ncio
