package runtime

import "crypto/sha256"

// DiscriminatorSize is the length of the tag that prefixes instruction data,
// account data and event data.
const DiscriminatorSize = 8

type Discriminator [DiscriminatorSize]byte

func discriminator(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// InstructionDiscriminator tags the data of the named instruction.
func InstructionDiscriminator(name string) Discriminator {
	return discriminator("global", name)
}

// AccountDiscriminator tags the data of an account holding the named record.
func AccountDiscriminator(name string) Discriminator {
	return discriminator("account", name)
}

// EventDiscriminator tags the payload of the named event.
func EventDiscriminator(name string) Discriminator {
	return discriminator("event", name)
}

// SplitInstruction separates the discriminator from the arguments.
func SplitInstruction(data []byte) (Discriminator, []byte, error) {
	var d Discriminator
	if len(data) < DiscriminatorSize {
		return d, nil, ErrInstructionMissing
	}
	copy(d[:], data[:DiscriminatorSize])
	return d, data[DiscriminatorSize:], nil
}
