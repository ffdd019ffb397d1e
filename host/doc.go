// Package host exposes serial ports through a call surface meant for
// embedding runtimes that poll, such as script engines or game loops.
//
// No method here returns an error. Failures turn into plain values (false,
// -1, an empty slice, 0) and each one is reported once to the *zap.Logger
// given with WithLogger. Callers that need to tell "no data" apart from
// "read failed" should use the parent serial package directly.
//
//	reg := host.NewRegistry(logger)
//	for _, p := range reg.ListPorts() {
//	    fmt.Println(p.Name)
//	}
//
//	sp := host.New(host.WithLogger(logger))
//	defer sp.Close()
//	if !sp.Open("/dev/ttyUSB0", 115200) {
//	    return
//	}
//	sp.Write([]byte("ping\n"))
//	for sp.Available() == 0 {
//	    time.Sleep(10 * time.Millisecond)
//	}
//	reply := sp.Read()
//
// A SerialPort has a single owner and does no locking of its own.
package host
