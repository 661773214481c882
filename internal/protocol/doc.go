// Package protocol connects an episode environment to an external learning
// agent.
//
// The exchange is a strict alternation of typed messages. After a one-time
// handshake (dimensions, action bounds, observation mask) every episode
// opens with an initial state; each state carries a sequence number that
// the agent must echo in exactly one action. The episode closes with a
// final state (step limit reached, the agent may bootstrap) or a terminal
// state (target reached).
//
// [Conn] enforces the ordering for any [Transport]; [Session] drives an
// environment through a Conn until the agent disconnects.
package protocol
