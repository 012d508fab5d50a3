// Package recognition drives remote speech-recognition jobs.
//
// A Client submits a job for an audio URL, waits for it through an explicit
// state machine (submitted, running, succeeded, failed, timed-out), and
// fetches the transcript once the job succeeds. Waiting is driven by an
// injectable Clock so the loop runs the same under tests, goroutines, or a
// caller's own scheduler. The remote service sits behind the API interface;
// the aliyun subpackage talks to Alibaba Cloud file transcription.
package recognition
