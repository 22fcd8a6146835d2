// Package nn implements the small fixed-topology feedforward networks that
// drive agents: random construction, cloning, tanh forward evaluation and the
// banded weight mutation operator used by the trainer.
package nn
