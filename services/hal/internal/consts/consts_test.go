package consts

import "testing"

func TestTokens(t *testing.T) {
	if TokConfig != "config" || TokHAL != "hal" || TokCap != "cap" {
		t.Fatal("top-level tokens changed unexpectedly")
	}
	if CtrlWrite != "write" || CtrlFlush != "flush" || CtrlStatus != "status" {
		t.Fatal("control tokens changed unexpectedly")
	}
	if TypeUART != "uart" || TypeSoftSerial != "soft_serial" {
		t.Fatal("device types changed unexpectedly")
	}
}
