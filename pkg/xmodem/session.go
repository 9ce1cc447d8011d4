package xmodem

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config bundles the protocol's configurable timeouts and retry budget (§6).
// BOOT_TIMEOUT and INITIAL_PACKET_TIMEOUT are not here: they select
// recv_begin's pkt_timeout argument per attempt and are owned by the Image
// Assembler (image.NewAssembler), not the Session.
type Config struct {
	PurgeTimeout  time.Duration
	Retry         int
	PacketTimeout time.Duration
	DataTimeout   time.Duration
}

// Session drives the per-packet retry/ACK/NAK/CAN protocol and the initial
// poll handshake on top of the Packet Receiver (§4.3). A Session does not
// track sequence numbers across calls; the caller (the Image Assembler) owns
// that state and passes the expected sequence into every call.
type Session struct {
	io  ByteIO
	cfg Config
}

// NewSession builds a Transfer Session bound to the given link and config.
func NewSession(io ByteIO, cfg Config) *Session {
	return &Session{io: io, cfg: cfg}
}

func (s *Session) send(b byte) {
	if err := s.io.WriteByte(b); err != nil {
		log.Debugf("xmodem: write byte 0x%02x failed: %v", b, err)
	}
}

// purge drains the link until PurgeTimeout passes with no byte arriving.
func (s *Session) purge(ctx context.Context) {
	for {
		_, ok := readByte(ctx, s.io, s.cfg.PurgeTimeout)
		if !ok {
			return
		}
	}
}

// RecvBegin performs the initial-poll handshake (§4.3). buf receives the
// first packet's payload on XMOK. pktTimeout bounds the wait for that first
// packet and varies by caller (the Image Assembler picks BOOT_TIMEOUT or
// INITIAL_PACKET_TIMEOUT per §4.4); every byte after that uses the
// configured DataTimeout.
func (s *Session) RecvBegin(ctx context.Context, buf []byte, pktTimeout time.Duration) Outcome {
	s.purge(ctx)
	s.send(pollByte)

	retry := 0
	for {
		res := recvPacket(ctx, s.io, buf, 1, pktTimeout, s.cfg.DataTimeout)
		log.Debugf("xmodem: recv_begin packet result %s", res)
		switch res {
		case PktOK:
			return XMOK
		case PktCan:
			return XMCan
		case PktEOT:
			s.send(ACK)
			return XMEot
		case PktTimeout:
			return XMInitialTimeout
		case PktBadData, PktDataTimeout:
			if retry < s.cfg.Retry {
				retry++
				s.purge(ctx)
				s.send(NAK)
				continue
			}
			log.Warnf("xmodem: recv_begin retry exhausted after %s", res)
			s.send(CAN)
			return XMAbort
		default:
			// PktRepeat at sequence 1, PktFatal, or anything else: fatal per §4.3.
			log.Warnf("xmodem: recv_begin aborting on %s", res)
			s.send(CAN)
			return XMAbort
		}
	}
}

// RecvNext receives the next transport packet after a previously accepted
// one, ACKing it first (§4.3). expectedSeq is the sequence the caller expects
// next.
func (s *Session) RecvNext(ctx context.Context, buf []byte, expectedSeq uint8) Outcome {
	s.send(ACK)

	retry := 0
	for {
		res := recvPacket(ctx, s.io, buf, expectedSeq, s.cfg.PacketTimeout, s.cfg.DataTimeout)
		log.Debugf("xmodem: recv_next packet result %s (expected seq %d)", res, expectedSeq)
		switch res {
		case PktOK:
			return XMOK
		case PktEOT:
			s.send(ACK)
			return XMEot
		case PktCan:
			return XMCan
		case PktRepeat:
			retry = 0
			s.send(ACK)
			continue
		case PktTimeout, PktDataTimeout, PktBadData:
			if retry < s.cfg.Retry {
				retry++
				s.purge(ctx)
				s.send(NAK)
				continue
			}
			log.Warnf("xmodem: recv_next retry exhausted after %s", res)
			s.send(CAN)
			return XMAbort
		default:
			// PktFatal or anything else.
			log.Warnf("xmodem: recv_next aborting on %s", res)
			s.send(CAN)
			return XMAbort
		}
	}
}

// RecvCancel sends a single CAN byte, aborting the transfer from our side.
func (s *Session) RecvCancel() {
	s.send(CAN)
}
