// Package nginxconf turns nginx-style configuration into a normalized,
// strongly-typed model that code generators can consume.
//
// The package has three layers:
//
//   - Directive tree: the generic parsed form {directive, args, line, block}.
//     DecodeTree ingests pre-parsed trees in the crossplane JSON schema
//     (either a bare directive array or a full parser payload object), so any
//     external authoritative parser can act as the front end.
//   - Native parser: ParseFile / ParseString produce the same tree from
//     configuration text without an external parser. ParseFile expands
//     include directives (globs allowed); ParseString keeps them verbatim.
//   - Model builder: Build walks a tree and produces Config (servers,
//     upstreams, global directives). The builder never fails; anomalies such
//     as a non-numeric listen port become BuildWarning values and the rest
//     of the model stays intact.
//
// The model is built once per conversion run, is immutable afterwards and
// owns no external resources.
package nginxconf
