package jfuzz

// programGenerator is the generation flow behind Generate: initialize seeds
// the random source, generate runs the passes and returns the program.
type programGenerator interface {
	initialize()
	generate() *Program
}

func createProgramGenerator(opts Options) programGenerator {
	return newJavaProgramGenerator(opts)
}
