package config

// WorkerKeyStruct names the Redis lists consumed by background workers.
type WorkerKeyStruct struct {
	AttemptAnswersQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptAnswersQueue: "motoquiz:queue:attempt_answers",
}
