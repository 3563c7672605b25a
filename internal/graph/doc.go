// Package graph holds the quantum graph: the read-only build plan produced
// by the graph builder.
//
// # Structure
//
// A QuantumGraph is partitioned by task. Each TaskNodes value carries the
// task definition and its quanta, in pipeline order. A Quantum is one unit of
// work for one task at one combination of quantum-dimension values:
//
//	QuantumGraph
//	 ├── TaskNodes "isr"
//	 │    ├── Quantum {instrument: "HSC", visit: 1, detector: 10}
//	 │    │     inputs:  raw@{...}#17
//	 │    │     outputs: postISRCCD@{...}
//	 │    └── Quantum {instrument: "HSC", visit: 1, detector: 11}
//	 └── TaskNodes "calibrate"
//	      └── ...
//
// Alongside the task partitions the graph records the pipeline-wide dataset
// type sets: the external inputs that must already exist, every output this
// run creates, the resolved init-inputs and the init-outputs to be written.
//
// # Dependencies
//
// Tasks are linked by the dataset types they exchange. UpstreamTasks and
// DownstreamTasks expose that view, labeled by dataset type through
// ExchangedTypes.
//
// # Thread-Safety
//
// A QuantumGraph is never modified after New returns. Accessors return
// copies, so the graph may be shared between goroutines freely.
package graph
