// Package revomod defines the shared kernel for revolute-module firmware:
// the module frame type, the half-duplex bus abstraction every port-role
// uses to exchange frames, the process-wide module state (ID, CONFIGURED,
// CHILD, SERVO_ID), and the sentinel errors returned across package
// boundaries.
//
// The protocol and hardware-facing pieces live in sub-packages:
//
//   - pkg/frame    module frame codec (C1)
//   - pkg/servo    servo wire codec and servo-coupling procedure (C1, C4)
//   - pkg/role     port-role controller (C2)
//   - pkg/timeout  shared timeout flag (C3)
//   - pkg/discovery  discovery/routing state machine (C5)
//   - pkg/gpio     LED and servo-ID indicator surface (C6)
//   - pkg/bus      concrete Bus implementations (virtual loopback, serial)
//   - pkg/device   wires the above into the module's main control loop
package revomod
