package broker

// Every instance listens on the same subject; notices are tiny and only say
// which collection changed, so a plain stream with short retention is enough.
var (
	StreamName     = "DOCUMENTS"
	SubjectChanges = StreamName + "." + "changes"
)
