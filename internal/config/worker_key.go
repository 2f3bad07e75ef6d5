package config

type WorkerKeyStruct struct {
	SessionTouchQueue string
}

var WorkerKey = &WorkerKeyStruct{
	SessionTouchQueue: "session_touch_queue",
}
