package config

const (
	// TopicIngestRequest carries asynchronous indexing-run requests.
	TopicIngestRequest = "ingest.request"

	// TopicIngestResult carries indexing-run outcomes (stats or failure).
	TopicIngestResult = "ingest.result"
)
