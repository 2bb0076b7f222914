// Package chain - HealthVault contract boundary
package chain

// HealthVaultABI the HealthVault contract methods used by the store's callers
const HealthVaultABI = `[
  {
    "type": "function",
    "name": "createRecordFromExternal",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "cid", "type": "string"},
      {"name": "allergyExt", "type": "bytes32"},
      {"name": "allergyProof", "type": "bytes"},
      {"name": "riskExt", "type": "bytes32"},
      {"name": "riskProof", "type": "bytes"}
    ],
    "outputs": [{"name": "id", "type": "uint256"}]
  },
  {
    "type": "function",
    "name": "grantAccess",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "doctor", "type": "address"},
      {"name": "isGranted", "type": "bool"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "addRiskDelta",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "id", "type": "uint256"},
      {"name": "deltaExt", "type": "bytes32"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "requestRiskDecrypt",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "id", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "event",
    "name": "RiskDecrypted",
    "anonymous": false,
    "inputs": [
      {"name": "id", "type": "uint256", "indexed": true},
      {"name": "risk", "type": "uint16", "indexed": false}
    ]
  }
]`
