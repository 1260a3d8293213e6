package crypto

const HashSize = 32
