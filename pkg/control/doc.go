// Package control runs the process control loop.
//
// OS signals never act on the server directly. NotifySignals turns them into
// Command values queued on a Controller, and Controller.Run applies those
// commands to the server one at a time:
//
//	SIGINT, SIGTERM  -> Shutdown
//	SIGHUP           -> Restart
//
// The restart handler uses the same queue, so a restart requested over HTTP
// and one requested by signal follow the same path.
package control
