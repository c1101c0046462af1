// Package matching implementa el Matching Engine.
//
// Una corrida toma la foto de elegibles de un tenant, la permuta al azar
// y la recorre de a dos (o de a tres si quedan exactamente tres),
// emitiendo solo grupos cuyas aristas no existen en la historia.
//
//	elegibles ──shuffle──▶ [a b c d e]
//	                         │
//	                         ├─ (a,b) válido ─▶ emit + RecordPair
//	                         ├─ (c,d) repetido ─▶ swap acotado o stop
//	                         └─ quedan 3 ─▶ trío válido o stop
//
// "No hay matching posible" nunca es un error: se reporta como Outcome.
// Los errores de storage cortan la corrida y se devuelven junto con los
// grupos ya registrados para que igual se notifiquen.
package matching
