package config

type WorkerKeyStruct struct {
	PersistProgressQueue string
	PersistResultsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue: "persist_progress_queue",
	PersistResultsQueue:  "persist_results_queue",
}
